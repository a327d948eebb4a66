package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
)

// addUser creates an active identity.
func (cli *commandLine) addUser(ni identity.NewIdentity) error {
	idt, err := cli.identities.Create(context.Background(), ni)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cli.out, "created %s %q (id %d)\n", idt.Role, idt.Email, idt.ID)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	updated, err := cli.identities.SetPassword(context.Background(), email, pwd)
	if err != nil {
		return describe(err)
	}
	if !updated {
		return identity.ErrNotFound
	}
	fmt.Fprintln(cli.out, "password has been reset")
	return nil
}

// describe flattens validation failures into a single readable error.
func describe(err error) error {
	var valErr *core.ValidationError
	if errors.As(err, &valErr) && len(valErr.Fields) > 0 {
		fields := make(map[string]string, len(valErr.Fields))
		for _, f := range valErr.Fields {
			fields[f.Field] = f.Error
		}
		return errors.New(joinFields(fields))
	}
	return err
}

func joinFields(fields map[string]string) string {
	msgs := make([]string, 0, len(fields))
	for fld, msg := range fields {
		msgs = append(msgs, fld+": "+msg)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
