package main

import (
	"context"
	"fmt"

	"github.com/trezcool/edutrack/core/user"
)

func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s (%s) created with ID %d\n", usr.Email, usr.Role, usr.ID)
	return nil
}
