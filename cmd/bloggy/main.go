package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usebloggy/bloggy/internal/profile"
	"github.com/usebloggy/bloggy/server"
	"github.com/usebloggy/bloggy/internal/observability"
	"github.com/usebloggy/bloggy/store"
	"github.com/usebloggy/bloggy/store/db"
)

const greetingBanner = `Bloggy - cache-first blogging, v%s
`

var rootCmd = &cobra.Command{
	Use:   "bloggy",
	Short: "A blogging service with a cache-first query engine",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:                viper.GetString("mode"),
			Addr:                viper.GetString("addr"),
			Port:                viper.GetInt("port"),
			Data:                viper.GetString("data"),
			Driver:              viper.GetString("driver"),
			DSN:                 viper.GetString("dsn"),
			InstanceURL:         viper.GetString("instance-url"),
			CacheEnabled:        viper.GetBool("cache-enabled"),
			CacheTTL:            viper.GetDuration("cache-ttl"),
			CacheCapacity:       viper.GetInt("cache-capacity"),
			CacheRedisAddr:      viper.GetString("cache-redis-addr"),
			TokenizerName:       viper.GetString("tokenizer"),
			TokenizerModulePath: viper.GetString("tokenizer-module-path"),
			Version:             version,
		}
		observability.SetupLogger(instanceProfile.Mode)
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		fmt.Printf(greetingBanner, instanceProfile.Version)
		if err := s.Start(ctx); err != nil {
			if err != http.ErrServerClosed {
				slog.Error("failed to start server", "error", err)
				cancel()
			}
		}

		<-ctx.Done()
	},
}

var version = "0.1.0"

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("data", "")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("cache-enabled", true)
	viper.SetDefault("cache-ttl", "5m")
	viper.SetDefault("cache-capacity", 1000)
	viper.SetDefault("tokenizer", "unicode")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "public url of the instance")
	rootCmd.PersistentFlags().Bool("cache-enabled", true, "enable the query response cache")
	rootCmd.PersistentFlags().Duration("cache-ttl", 0, "lifetime of a cached query result")
	rootCmd.PersistentFlags().Int("cache-capacity", 0, "maximum number of cached query results")
	rootCmd.PersistentFlags().String("cache-redis-addr", "", "redis address for cross-process cache invalidation")
	rootCmd.PersistentFlags().String("tokenizer", "unicode", "full-text tokenizer name")
	rootCmd.PersistentFlags().String("tokenizer-module-path", "", "tokenizer module binding hint")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("bloggy")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
