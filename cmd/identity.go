package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/resonance/identity"
)

type identityView struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Secret    string `json:"secret"`
}

func newIdentityCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Create a new identity",
		Long:  `Generate a key pair and print its address, public key and secret. Keep the secret to sign events.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.New()
			if err != nil {
				return err
			}
			v := identityView{Address: id.Address(), PublicKey: id.PublicKey(), Secret: id.Secret()}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			table, err := pterm.DefaultTable.WithData(pterm.TableData{
				{"address", v.Address},
				{"public key", v.PublicKey},
				{"secret", v.Secret},
			}).Srender()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
