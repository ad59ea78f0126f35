package main

import (
	"fmt"
	"time"

	"github.com/beka-birhanu/ohrace/api/identity"
	"github.com/beka-birhanu/ohrace/config"
	"github.com/beka-birhanu/ohrace/infrastruture/token"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a bearer token for the protected API routes",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	tokenizer := token.NewJwtService(config.MustGetEnv("JWT_SECRET"), config.Envs.JWTIssuer)
	signed, err := tokenizer.Generate(map[string]interface{}{identity.SubjectClaim: args[0]}, ttl)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
