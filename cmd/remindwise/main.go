package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/internal/version"
	"github.com/hrygo/remindwise/plugin/localnotify"
	"github.com/hrygo/remindwise/plugin/push"
	"github.com/hrygo/remindwise/plugin/telegram"
	"github.com/hrygo/remindwise/scheduler"
	"github.com/hrygo/remindwise/server"
	"github.com/hrygo/remindwise/store"
	"github.com/hrygo/remindwise/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "remindwise",
	Short: `An adaptive reminder scheduler. Turns task deadlines and user habits into well-timed, escalating reminders.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd deployments carry their environment in the unit file.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", slog.Any("err", err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", slog.Any("err", err))
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", slog.Any("err", err))
			return
		}

		registry := prometheus.NewRegistry()
		sched := buildScheduler(instanceProfile, storeInstance, registry)

		s, err := server.NewServer(instanceProfile, storeInstance, sched, registry)
		if err != nil {
			slog.Error("failed to create server", slog.Any("err", err))
			return
		}

		// Offline queue background loops: local fire-check plus network replay.
		queue := sched.Queue()
		go queue.RunLocalFireLoop(ctx, time.Duration(instanceProfile.QueueScanSeconds)*time.Second)
		go queue.RunReplayLoop(ctx, time.Duration(instanceProfile.QueueReplaySeconds)*time.Second, sched.NetworkBackends())

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)

		errCh := s.Start(ctx)
		printGreetings(instanceProfile)

		select {
		case <-c:
		case err := <-errCh:
			slog.Error("server stopped unexpectedly", slog.Any("err", err))
		}
		s.Shutdown(ctx)
	},
}

// buildScheduler assembles the delivery chain and its collaborators. Chain
// order is fixed: push API first, Telegram if configured, durable queue last.
func buildScheduler(instanceProfile *profile.Profile, storeInstance *store.Store, registry *prometheus.Registry) *scheduler.Scheduler {
	metrics := scheduler.NewMetrics(registry)
	queue := scheduler.NewOfflineQueue(storeInstance, localnotify.NewSlog(nil), metrics)

	var backends []scheduler.Backend
	if instanceProfile.PushBaseURL != "" {
		client := push.NewClient(&push.Config{
			BaseURL:       instanceProfile.PushBaseURL,
			APIKey:        instanceProfile.PushAPIKey,
			Timeout:       time.Duration(instanceProfile.PushTimeoutSeconds) * time.Second,
			RatePerSecond: instanceProfile.PushRatePerSecond,
		})
		backends = append(backends, scheduler.NewPushBackend(client))
	}
	if instanceProfile.HasTelegramBackend() {
		notifier, err := telegram.NewNotifier(&telegram.Config{BotToken: instanceProfile.TelegramBotToken})
		if err != nil {
			slog.Warn("telegram backend disabled", slog.Any("err", err))
		} else {
			chatID := instanceProfile.TelegramChatID
			resolve := func(_ context.Context, _ int32) (int64, error) {
				if chatID == 0 {
					return 0, errors.New("telegram chat id not configured")
				}
				return chatID, nil
			}
			backends = append(backends, scheduler.NewTelegramBackend(notifier, resolve))
		}
	}
	backends = append(backends, scheduler.NewQueueBackend(queue))

	dispatcher := scheduler.NewDispatcher(backends, time.Duration(instanceProfile.PushTimeoutSeconds)*time.Second, metrics)
	return scheduler.New(storeInstance, scheduler.NewGenerator(), dispatcher, queue, metrics)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28091)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28091, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your remindwise instance")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("remindwise")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("RemindWise %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
