package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharetube/syncwatch/internal/app"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/reconcile"
)

var rootCmd = &cobra.Command{
	Use:           "syncwatch",
	Short:         "Watch videos in sync with a room",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".syncwatch"
	}
	return filepath.Join(dir, "syncwatch")
}

func init() {
	engine := reconcile.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.String("store-url", "http://localhost:8080/api", "room store api url")
	flags.String("data-dir", defaultDataDir(), "directory of the local room copy and identity")
	flags.String("log-level", "INFO", "logging level")
	flags.Duration("request-timeout", 5*time.Second, "room store request timeout")
	flags.Int("load-retries", 3, "attempts to load a room before giving up")
	flags.Duration("load-retry-delay", time.Second, "delay between room load attempts")
	flags.String("player", app.PlayerBrowser, "player to drive: browser or sim")
	flags.String("bridge-addr", "127.0.0.1:8765", "address of the local player page")
	flags.Duration("poll-interval", engine.PollInterval, "room poll interval")
	flags.Duration("seek-poll-interval", engine.SeekPollInterval, "playhead sampling interval")
	flags.Float64("seek-threshold", engine.SeekThreshold, "seconds of difference treated as a seek")
	flags.Duration("state-window", engine.StateWindow, "age after which remote play/pause is ignored")
	flags.Duration("seek-window", engine.SeekWindow, "age after which remote seeks are ignored")
	flags.Int("missing-room-polls", engine.MissingRoomPolls, "not-found polls before the room counts as closed")

	viper.SetEnvPrefix("SYNCWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(roomsCmd(), createCmd(), joinCmd(), watchCmd(), leaveCmd(), deleteCmd())
}

func loadClientConfig() (*app.ClientConfig, error) {
	engine := reconcile.DefaultConfig()
	engine.PollInterval = viper.GetDuration("poll-interval")
	engine.SeekPollInterval = viper.GetDuration("seek-poll-interval")
	engine.SeekThreshold = viper.GetFloat64("seek-threshold")
	engine.StateWindow = viper.GetDuration("state-window")
	engine.SeekWindow = viper.GetDuration("seek-window")
	engine.MissingRoomPolls = viper.GetInt("missing-room-polls")

	cfg := &app.ClientConfig{
		StoreURL:       viper.GetString("store-url"),
		DataDir:        viper.GetString("data-dir"),
		LogLevel:       viper.GetString("log-level"),
		RequestTimeout: viper.GetDuration("request-timeout"),
		LoadRetries:    viper.GetInt("load-retries"),
		LoadRetryDelay: viper.GetDuration("load-retry-delay"),
		Player:         viper.GetString("player"),
		BridgeAddr:     viper.GetString("bridge-addr"),
		Engine:         engine,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// withClient opens the client for the duration of fn.
func withClient(fn func(ctx context.Context, c *app.Client) error) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	c, err := app.NewClient(&app.ClientParams{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, c)
}

func roomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List active rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *app.Client) error {
				rooms, err := c.ListRooms(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tLEADER\tMEMBERS\tLOCKED")
				for _, r := range rooms {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", r.ID, r.Name, r.LeaderUsername, len(r.Participants), r.Password != "")
				}
				return w.Flush()
			})
		},
	}
}

func createCmd() *cobra.Command {
	var (
		params app.CreateRoomParams
		grants []string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room you lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, g := range grants {
				action, err := permission.Parse(g)
				if err != nil {
					return fmt.Errorf("%w: %s", err, g)
				}
				params.Permissions = permission.Set(params.Permissions, action, true)
			}

			return withClient(func(ctx context.Context, c *app.Client) error {
				rm, err := c.CreateRoom(ctx, &params)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rm.ID)
				if !watch {
					return nil
				}
				return watchRoom(ctx, c, cmd, &app.WatchParams{RoomID: rm.ID, Username: params.Username, Password: params.Password})
			})
		},
	}
	cmd.Flags().StringVar(&params.Name, "name", "", "room name")
	cmd.Flags().StringVar(&params.Password, "password", "", "room password")
	cmd.Flags().StringVar(&params.Username, "username", "", "your username")
	cmd.Flags().StringSliceVar(&grants, "allow", nil, "actions granted to everyone: "+actionList())
	cmd.Flags().BoolVar(&watch, "watch", false, "start watching right away")
	return cmd
}

func actionList() string {
	actions := permission.Actions()
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func joinCmd() *cobra.Command {
	var params app.JoinRoomParams
	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room without watching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.RoomID = args[0]
			return withClient(func(ctx context.Context, c *app.Client) error {
				rm, err := c.JoinRoom(ctx, &params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "joined %s with %d participant(s)\n", rm.Name, len(rm.Participants))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "your username")
	cmd.Flags().StringVar(&params.Password, "password", "", "room password")
	return cmd
}

func watchCmd() *cobra.Command {
	var params app.WatchParams
	cmd := &cobra.Command{
		Use:   "watch <room-id>",
		Short: "Join a room and keep the player in sync until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.RoomID = args[0]
			return withClient(func(ctx context.Context, c *app.Client) error {
				return watchRoom(ctx, c, cmd, &params)
			})
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "your username")
	cmd.Flags().StringVar(&params.Password, "password", "", "room password")
	return cmd
}

func watchRoom(ctx context.Context, c *app.Client, cmd *cobra.Command, params *app.WatchParams) error {
	params.Console = cmd.InOrStdin()
	params.Output = cmd.OutOrStdout()
	fmt.Fprintln(cmd.OutOrStdout(), "type help for commands")

	err := c.Watch(ctx, params)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reconcile.ErrKicked), errors.Is(err, reconcile.ErrRoomClosed):
		fmt.Fprintln(cmd.OutOrStdout(), err)
		return nil
	}
	return err
}

func leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <room-id>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *app.Client) error {
				return c.LeaveRoom(ctx, args[0])
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <room-id>",
		Short: "Delete a room you lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *app.Client) error {
				return c.DeleteRoom(ctx, args[0])
			})
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

