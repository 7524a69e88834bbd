package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"smilestore/internal/crypto"
)

// keygen prints a value suitable for ENCRYPTION_KEY. With --passphrase the
// key is derived with scrypt and the salt is printed alongside so the same
// key can be derived again.
func keygenCmd() *cobra.Command {
	var passphrase, saltStr string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if passphrase == "" {
				key, err := crypto.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, key)
				return nil
			}

			var salt []byte
			var err error
			if saltStr != "" {
				salt, err = crypto.ParseSalt(saltStr)
			} else {
				salt, err = crypto.NewSalt()
			}
			if err != nil {
				return err
			}
			key, err := crypto.DeriveKey(passphrase, salt)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", key)
			fmt.Fprintf(out, "salt=%s\n", crypto.B64(salt))
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "derive the key from a passphrase")
	cmd.Flags().StringVar(&saltStr, "salt", "", "salt printed by an earlier keygen --passphrase run")
	return withoutWire(cmd)
}
