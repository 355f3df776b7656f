package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vibeweb/internal/demo"
	"vibeweb/internal/feed"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/profile"
	"vibeweb/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	loginEmail    string
	loginPassword string

	feedKind     string
	feedPages    int
	feedPageSize int

	followReconcile bool

	demoAddr      string
	demoUsers     int
	demoPosts     int
	demoSeed      int64
	demoSecret    string
	demoPublicURL string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the bearer token",
	RunE:  runLogin,
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Page through a feed and print its posts",
	Long: `Page through the global or personal feed the way the home page does.

The personal feed needs a token (--token or FEEDCTL_TOKEN).`,
	RunE: runFeed,
}

var followCmd = &cobra.Command{
	Use:   "follow <nickname>",
	Short: "Toggle following a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollow,
}

var demoBackendCmd = &cobra.Command{
	Use:   "demo-backend",
	Short: "Serve an in-memory backend seeded with fake content",
	Long: fmt.Sprintf(`Serve the backend REST API from memory, seeded with fake users and posts.

Log in with %s / %s.`, demo.DemoEmail, demo.DemoPassword),
	RunE: runDemoBackend,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", demo.DemoEmail, "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("password")

	feedCmd.Flags().StringVar(&feedKind, "kind", string(models.FeedGlobal), "Feed to read: global or personal")
	feedCmd.Flags().IntVar(&feedPages, "pages", 1, "Number of pages to load")
	feedCmd.Flags().IntVar(&feedPageSize, "page-size", 5, "Posts per page")

	followCmd.Flags().BoolVar(&followReconcile, "reconcile", true, "Re-read the profile when the toggle fails")

	demoBackendCmd.Flags().StringVar(&demoAddr, "addr", ":3001", "Listen address")
	demoBackendCmd.Flags().IntVar(&demoUsers, "users", 8, "Seeded users, including the demo account")
	demoBackendCmd.Flags().IntVar(&demoPosts, "posts", 40, "Seeded posts")
	demoBackendCmd.Flags().Int64Var(&demoSeed, "seed", 0, "Fake data seed (0 picks a random one)")
	demoBackendCmd.Flags().StringVar(&demoSecret, "secret", "", "Token signing secret")
	demoBackendCmd.Flags().StringVar(&demoPublicURL, "public-url", "", "Base URL for uploaded images (default http://localhost<addr>)")
}

func currentSession() session.Session {
	return session.Session{ID: "feedctl", Token: viper.GetString("token")}
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	token, err := client.Login(ctx, models.Credentials{Email: loginEmail, Password: loginPassword})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runFeed(cmd *cobra.Command, args []string) error {
	kind, ok := models.ParseFeedKind(feedKind)
	if !ok {
		return fmt.Errorf("unknown feed %q", feedKind)
	}
	if feedPages < 1 {
		return errors.New("--pages must be at least 1")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	ctrl := feed.New(client, currentSession(), feed.Options{PageSize: feedPageSize, FetchTimeout: timeout})
	defer ctrl.Close()

	if err := ctrl.SelectFeed(ctx, kind); err != nil {
		return err
	}
	for page := 1; page < feedPages && ctrl.Snapshot().HasMore(); page++ {
		if err := ctrl.LoadNextPage(ctx); err != nil {
			return err
		}
	}

	st := ctrl.Snapshot()
	out := cmd.OutOrStdout()
	for _, p := range st.Posts {
		line := strings.Join(strings.Fields(p.Content), " ")
		if p.HasImage() {
			line += " [image]"
		}
		fmt.Fprintf(out, "#%d @%s %s\n", p.ID, p.Author.Nickname, line)
	}
	fmt.Fprintf(out, "-- %d posts, %s\n", len(st.Posts), st.Status)
	return nil
}

func runFollow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	view := profile.NewView(client, currentSession(), args[0], profile.Options{Reconcile: followReconcile})
	if err := view.Load(ctx); err != nil {
		return err
	}
	toggleErr := view.Toggle(ctx)

	p := view.Snapshot()
	state := "not following"
	if p.IsFollowing {
		state = "following"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "@%s: %s, %d followers\n", p.Nickname, state, p.Counts.Followers)
	return toggleErr
}

func runDemoBackend(cmd *cobra.Command, args []string) error {
	publicURL := demoPublicURL
	if publicURL == "" && strings.HasPrefix(demoAddr, ":") {
		publicURL = "http://localhost" + demoAddr
	}

	backend := demo.New(demo.Options{
		Users:        demoUsers,
		Posts:        demoPosts,
		Seed:         demoSeed,
		Secret:       demoSecret,
		ImageBaseURL: publicURL,
	})
	app := backend.App()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("demo backend shutdown error", "error", err)
		}
	}()

	observability.Logger.Info("demo backend listening", "addr", demoAddr, "login", demo.DemoEmail)
	return app.Listen(demoAddr)
}
