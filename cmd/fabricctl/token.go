package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/fabricops/fabricctl/pkg/auth"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const tokenEnv = "FABRIC_TOKEN"

var tokenCmd = &cobra.Command{
	Use:               "token",
	Short:             "Acquire a Fabric API access token",
	PersistentPreRunE: prepare,
}

var tokenPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := state.tokens.Token()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, token.AccessToken)
		return nil
	},
}

var tokenClaimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Print the identity claims of the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := state.tokens.Token()
		if err != nil {
			return err
		}
		claims, err := auth.ParseClaims(token.AccessToken)
		if err != nil {
			return err
		}
		return output(claims.Identity())
	},
}

var tokenEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the access token in ENV format",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := state.tokens.Token()
		if err != nil {
			return err
		}
		if !token.Expiry.IsZero() {
			fmt.Fprintf(stdout, "# expires %s\n", token.Expiry.UTC().Format("2006-01-02T15:04:05Z"))
		}
		fmt.Fprintf(stdout, "export %s=%s\n", tokenEnv, shellescape.Quote(token.AccessToken))
		return nil
	},
}

var tokenExecCmd = &cobra.Command{
	Use:   "exec -- command [args...]",
	Short: "Execute a command with FABRIC_TOKEN set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := state.tokens.Token()
		if err != nil {
			return err
		}

		exe := exec.Command(args[0], args[1:]...)
		exe.Stderr = os.Stderr
		exe.Stdout = os.Stdout
		exe.Stdin = os.Stdin
		exe.Dir = cmd.Flag("cwd").Value.String()

		// replace any inherited token
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, tokenEnv+"=") {
				exe.Env = append(exe.Env, env)
			}
		}
		log.Debug().Msgf("setting env %s", tokenEnv)
		exe.Env = append(exe.Env, fmt.Sprintf("%s=%s", tokenEnv, token.AccessToken))

		return exe.Run()
	},
}

func init() {
	tokenCmd.AddCommand(tokenPrintCmd)
	tokenCmd.AddCommand(tokenClaimsCmd)
	tokenCmd.AddCommand(tokenEnvCmd)
	tokenCmd.AddCommand(tokenExecCmd)

	tokenExecCmd.Flags().String("cwd", "", "Execute the command in the given directory")
}
