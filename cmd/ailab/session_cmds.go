package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/ailab-client/auth"
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in with email and password. With --remember the session is restored
on the next start; without it the next start signs out.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session and sign out",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE:  runRegister,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new token pair",
	RunE:  runRefresh,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Run the startup session check and show where the app would start",
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	loginCmd.Flags().Bool("remember", false, "restore this session on the next start")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password")
	registerCmd.Flags().String("first-name", "", "first name")
	registerCmd.Flags().String("last-name", "", "last name")
	registerCmd.Flags().String("phone", "", "phone number")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	remember, _ := cmd.Flags().GetBool("remember")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	user, err := a.repo.Login(ctx, auth.Credentials{Email: email, Password: password, RememberMe: remember})
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("Logged in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	if err := a.repo.Logout(ctx); err != nil {
		printError(err)
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	var r auth.Registration
	r.Email, _ = cmd.Flags().GetString("email")
	r.Password, _ = cmd.Flags().GetString("password")
	r.FirstName, _ = cmd.Flags().GetString("first-name")
	r.LastName, _ = cmd.Flags().GetString("last-name")
	r.Phone, _ = cmd.Flags().GetString("phone")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	user, err := a.repo.Register(ctx, r)
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("Registered %s (%s). Log in to continue.\n", user.Email, user.ID)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	if err := a.repo.RefreshSession(ctx); err != nil {
		printError(err)
		return err
	}
	fmt.Println("Session refreshed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	status := a.start(ctx)
	user, err := a.repo.CachedUser(ctx)
	if err != nil && !apperrors.Is(err, apperrors.ErrNoToken) {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"state":            status.State.String(),
			"startDestination": status.StartDestination,
			"user":             user,
		})
	}
	fmt.Printf("State:       %s\n", status.State)
	fmt.Printf("Start:       %s\n", status.StartDestination)
	if user != nil {
		fmt.Printf("Cached user: %s <%s>\n", user.ID, user.Email)
	}
	return nil
}
