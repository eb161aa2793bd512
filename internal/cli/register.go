package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/output"
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create the test account used by run",
		Long: `Register a user on the backend so that "hookload run" can log in with it.
The email and password come from the same layers as run: defaults,
--config, HOOKLOAD_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: runRegister,
	}

	addConnectionFlags(cmd)
	cmd.Flags().String("name", "Load Test User", "Display name")
	cmd.Flags().Int("age", 30, "Age")
	cmd.Flags().String("gender", "MALE", "Gender")
	cmd.Flags().Float64("weight", 75, "Weight in kg")
	cmd.Flags().String("city", "Test City", "City")
	cmd.Flags().Bool("show-token", false, "Print the issued token")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")
	showToken, _ := cmd.Flags().GetBool("show-token")

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	reg := hhttp.Registration{
		Email:    cfg.Credentials.Email,
		Password: cfg.Credentials.Password,
	}
	reg.Name, _ = cmd.Flags().GetString("name")
	reg.Age, _ = cmd.Flags().GetInt("age")
	reg.Gender, _ = cmd.Flags().GetString("gender")
	reg.Weight, _ = cmd.Flags().GetFloat64("weight")
	reg.City, _ = cmd.Flags().GetString("city")

	client := newClient(cfg)
	defer client.CloseIdleConnections()

	console := output.NewConsole(cmd.OutOrStdout(), output.ConsoleOptions{NoColor: noColor})

	token, err := client.Register(context.Background(), reg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Registration failed: %v\n", console.Scheme().ErrorIcon(), err)
		return errReported
	}

	console.Registered(reg.Email)
	if showToken {
		fmt.Fprintln(cmd.OutOrStdout(), token)
	}
	return nil
}
