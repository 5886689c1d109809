// Package main provides the CLI entrypoint for fingertrack.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/fingertrack/internal/app"
	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/config"
	"github.com/ayusman/fingertrack/internal/kinematics"
	"github.com/ayusman/fingertrack/internal/log"
	"github.com/ayusman/fingertrack/internal/record"
	"github.com/ayusman/fingertrack/internal/server"
	"github.com/ayusman/fingertrack/internal/session"
	"github.com/ayusman/fingertrack/internal/store"
	"github.com/ayusman/fingertrack/internal/vision"
)

var (
	configPath string
	debug      bool

	runCalibrate  bool
	runRecordPath string
	runCamera     int
	runAddr       string

	statsLast int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fingertrack",
		Short:         "Finger tracking and biomechanical trial analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to TOML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&runCalibrate, "calibrate", false, "start a calibration run at launch")
	rootCmd.Flags().StringVar(&runRecordPath, "record", "", "record the raw snapshot stream to this file")
	rootCmd.Flags().IntVar(&runCamera, "camera", -1, "camera device ID (overrides config)")
	rootCmd.Flags().StringVar(&runAddr, "addr", "", "HTTP server address (overrides config)")

	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func loadSettings() (config.Config, error) {
	if err := log.Init(debug); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	defer log.Sync()

	if runCamera >= 0 {
		cfg.Tracking.CameraDevice = runCamera
	}
	if runAddr != "" {
		cfg.Server.Addr = runAddr
	}

	detector, err := vision.NewMediaPipeDetector()
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}

	camera := vision.NewCamera(cfg.Tracking.CameraDevice, cfg.Tracking.PollHz)
	provider, err := vision.NewCameraProvider(camera, detector, cfg.Tracking.PollHz)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", cfg.Tracking.CameraDevice, err)
	}
	defer provider.Close()

	var recorder *record.Recorder
	if runRecordPath != "" {
		recorder, err = record.NewRecorder(runRecordPath, time.Now().Format(time.RFC3339))
		if err != nil {
			return err
		}
		defer recorder.Close()
		log.Infof("recording snapshot stream to %s", runRecordPath)
	}

	st, err := store.New(cfg.Output.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	a, err := app.New(app.Config{
		Provider: provider,
		Store:    st,
		Recorder: recorder,
		Settings: cfg,
	})
	if err != nil {
		return err
	}

	if runCalibrate || !a.Calibrated() {
		a.StartCalibration()
	}

	srv := server.New(server.Config{
		Store: st,
		State: func() any { return a.State() },
	})
	go func() {
		log.Infof("serving API on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Errorf("http server: %v", err)
		}
	}()

	a.Start()
	log.Infow("session started", "session_key", a.SessionKey())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	a.Stop()
	agg, err := a.Finish()
	if err != nil {
		return err
	}
	printAggregate(agg)
	return nil
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <recording>",
		Short: "Re-run the pipeline over a recorded snapshot stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			defer log.Sync()

			provider, err := record.OpenReplay(args[0])
			if err != nil {
				return err
			}
			defer provider.Close()

			st, err := store.New(cfg.Output.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			a, err := app.New(app.Config{
				Provider: provider,
				Store:    st,
				Settings: cfg,
			})
			if err != nil {
				return err
			}

			log.Infof("replaying %d frames from %s", provider.Len(), args[0])
			a.Start()
			for !provider.Done() {
				time.Sleep(50 * time.Millisecond)
			}
			a.Stop()

			agg, err := a.Finish()
			if err != nil {
				return err
			}
			printAggregate(agg)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recent session summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := store.New(cfg.Output.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			sessions, err := st.Sessions().List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions recorded yet")
				return nil
			}
			if statsLast > 0 && len(sessions) > statsLast {
				sessions = sessions[:statsLast]
			}

			fmt.Printf("%-17s %7s %7s %8s %8s %9s %7s\n",
				"session", "trials", "wrong%", "clean%", "avg rt", "avg mlr", "rating")
			for _, s := range sessions {
				fmt.Printf("%-17s %7d %7.1f %8.1f %7.0fms %9.3f %7s\n",
					s.SessionKey,
					s.TotalTrials,
					s.WrongFingerRate,
					s.CleanTrialRate,
					s.AvgReactionTimeMS,
					s.AvgMLR,
					kinematics.MLRRating(s.AvgMLR),
				)
			}
			return nil
		},
	}
	statsCmd.Flags().IntVar(&statsLast, "last", 10, "number of sessions to show")
	return statsCmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved calibration so the next run recalibrates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := calib.Reset(cfg.Output.CalibrationPath); err != nil {
				return fmt.Errorf("reset calibration: %w", err)
			}
			fmt.Printf("calibration removed from %s\n", cfg.Output.CalibrationPath)
			return nil
		},
	}
}

func printAggregate(agg session.Aggregate) {
	fmt.Println()
	fmt.Println("--- session summary ---")
	fmt.Printf("session:            %s\n", agg.SessionKey)
	fmt.Printf("duration:           %.1fs\n", agg.DurationSeconds)
	fmt.Printf("trials:             %d (%d correct, %d wrong finger)\n",
		agg.TotalTrials, agg.CorrectTrials, agg.WrongFingerTrials)
	fmt.Printf("clean trial rate:   %.1f%%\n", agg.CleanTrialRate)
	fmt.Printf("coupled keypresses: %.1f%%\n", agg.CoupledKeypressRate)
	fmt.Printf("avg reaction time:  %.0fms\n", agg.AvgReactionTimeMS)
	fmt.Printf("avg motion leakage: %.3f (%s)\n", agg.AvgMLR, kinematics.MLRRating(agg.AvgMLR))
}
