package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/vslpipeline/internal/api/middleware"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "vsl_"

func newKeysCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for the admin endpoints",
	}
	cmd.AddCommand(newKeysCreateCommand(cc))
	cmd.AddCommand(newKeysListCommand(cc))
	return cmd
}

func newKeysCreateCommand(cc *commandContext) *cobra.Command {
	var (
		name   string
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			raw, err := generateKey()
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			key := &models.APIKey{
				ID:        uuid.New(),
				Name:      name,
				KeyHash:   string(hash),
				KeyPrefix: raw[:mw.KeyPrefixLen],
				Scopes:    scopes,
			}

			return cc.withServices(cmd.Context(), func(svc *services) error {
				if err := svc.store.CreateAPIKey(cmd.Context(), key); err != nil {
					return fmt.Errorf("store key: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created key %q (%s) with scopes %s\n", key.Name, key.ID, strings.Join(scopes, ","))
				fmt.Fprintf(out, "Key: %s\n", raw)
				fmt.Fprintln(out, "Store it now; it cannot be shown again.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human readable key name")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{models.ScopeAdmin}, "Scopes granted to the key")
	return cmd
}

func newKeysListCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withServices(cmd.Context(), func(svc *services) error {
				keys, err := svc.store.ListAPIKeys(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k.KeyPrefix, k.Name, strings.Join(k.Scopes, ","), formatTime(k.LastUsedAt)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Prefix", "Name", "Scopes", "Last used"}, rows))
				return nil
			})
		},
	}
}

// generateKey returns vsl_ followed by 48 hex characters.
func generateKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(b), nil
}
