package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pkt.systems/parley/broadcast"
	"pkt.systems/parley/coordinator"
	"pkt.systems/parley/internal/appconfig"
	"pkt.systems/parley/internal/logx"
	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

func newTabsCmd() *cobra.Command {
	var cfgPath string
	var tabs int
	var redisAddr string
	var channelName string
	var killLeaderAfter time.Duration
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Run several election participants and log leadership changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tabs < 1 {
				return errors.New("--tabs must be at least 1")
			}
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if redisAddr != "" {
				cfg.Election.RedisAddr = redisAddr
			}
			if channelName != "" {
				cfg.Election.Channel = channelName
			}
			timings, err := cfg.ElectionTimings()
			if err != nil {
				return err
			}

			var hub *broadcast.Hub
			var client *redis.Client
			if cfg.Election.RedisAddr != "" {
				client = redis.NewClient(&redis.Options{Addr: cfg.Election.RedisAddr})
				defer func() { _ = client.Close() }()
				logger.Info("election over redis", "addr", cfg.Election.RedisAddr, "channel", cfg.Election.Channel)
			} else {
				hub = broadcast.NewHub(logger)
				defer hub.Close()
				logger.Info("election over in-process hub", "channel", cfg.Election.Channel)
			}

			coords := make([]*coordinator.Coordinator, 0, tabs)
			defer func() {
				for _, c := range coords {
					c.Destroy()
				}
			}()
			for i := 0; i < tabs; i++ {
				id := schema.TabID(fmt.Sprintf("tab-%d-%s", i, uuid.NewString()[:8]))
				tabLog := logx.WithTab(logger, id)

				var ch broadcast.Channel
				if client != nil {
					redisCh, err := broadcast.NewRedisChannel(cmd.Context(), client, cfg.Election.Channel, id)
					if err != nil {
						return err
					}
					ch = redisCh
				} else {
					ch = hub.Open()
				}

				coord, err := coordinator.New(ch, coordinator.Config{
					TabID:    id,
					Election: timings,
					OnChange: func(leader bool) {
						if leader {
							tabLog.Info("tab became leader")
						} else {
							tabLog.Info("tab became follower")
						}
					},
					Logger: tabLog,
				})
				if err != nil {
					return err
				}
				coords = append(coords, coord)
			}

			var killTimer <-chan time.Time
			if killLeaderAfter > 0 {
				timer := time.NewTimer(killLeaderAfter)
				defer timer.Stop()
				killTimer = timer.C
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-killTimer:
					killTimer = nil
					for i, c := range coords {
						if c.IsLeader() {
							logger.Info("destroying leader to force a takeover", "tab", c.TabID())
							c.Destroy()
							coords = append(coords[:i], coords[i+1:]...)
							break
						}
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().IntVar(&tabs, "tabs", 3, "number of election participants")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address bridging the election channel (overrides config)")
	cmd.Flags().StringVar(&channelName, "channel", "", "broadcast channel name (overrides config)")
	cmd.Flags().DurationVar(&killLeaderAfter, "kill-leader-after", 0, "destroy the current leader after this long to exercise takeover")
	return cmd
}
