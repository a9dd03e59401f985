package main

import (
	"context"
	"fmt"

	"github.com/trezcool/edutrack/core/user"
)

func (cli *commandLine) resetPassword(rp user.ResetUserPassword) error {
	usr, err := cli.usrSvc.ResetPassword(context.Background(), rp)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s reset\n", usr.Email)
	return nil
}
