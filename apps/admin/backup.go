package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/trezcool/edutrack/core/backup"
)

func (cli *commandLine) backup(command string, args []string) error {
	ctx := context.Background()

	switch command {
	case "create":
		createCmd := flag.NewFlagSet("backup create", flag.ContinueOnError)
		createCmd.SetOutput(cli.out)
		description := createCmd.String("description", "", "A note stored along with the backup.")
		if err := createCmd.Parse(args); err != nil {
			return err
		}
		b, err := cli.backups.Create(ctx, backup.NewBackup{Description: *description, Type: backup.TypeManual})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "backup %s created (%d bytes)\n", b.Filename, b.Size)
		return nil

	case "list":
		backups, err := cli.backups.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tSIZE\tCREATED AT\tDESCRIPTION")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				b.ID, b.Type, b.Status, b.Size, b.CreatedAt.Format(time.RFC3339), b.Description)
		}
		return w.Flush()

	case "prune":
		pruned, err := cli.backups.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d expired backup(s) pruned\n", len(pruned))
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
