package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/edwinhayes/sendlocalization/localization"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const nodeName = "send_localization"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "send_localization [ros args...]",
	Short: "Trigger global relocalization and clear the global costmap",
	Long: `send_localization asks the localizer to relocalize the robot, seeded from
the last known pose when the distribution supports it, then clears the
global costmap.

ROS arguments such as __master:=URI, __ns:=NS or _pose_file:=PATH are
passed through to the node.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSendLocalization,
}

var recordCmd = &cobra.Command{
	Use:   "record [ros args...]",
	Short: "Keep the pose file up to date from amcl_pose until interrupted",
	Args:  cobra.ArbitraryArgs,
	RunE:  runRecord,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Print the message and service md5sums this node speaks",
	Args:  cobra.NoArgs,
	RunE:  runTypes,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, fatal)")
	rootCmd.AddCommand(recordCmd, typesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup creates the node and the config layered as defaults, config file,
// then private parameters.
func setup(args []string) (ros.Node, localization.Config, error) {
	cfg := localization.DefaultConfig()
	if logLevel != "" {
		args = append(args, "__log_level:="+logLevel)
	}
	node, err := ros.NewNode(nodeName, args)
	if err != nil {
		return nil, cfg, errors.Wrap(err, "creating node")
	}
	if configPath != "" {
		if err := localization.LoadConfigFile(configPath, &cfg); err != nil {
			node.Shutdown()
			return nil, cfg, err
		}
	}
	if err := cfg.LoadParams(node); err != nil {
		node.Shutdown()
		return nil, cfg, err
	}
	return node, cfg, nil
}

func runSendLocalization(cmd *cobra.Command, args []string) error {
	node, cfg, err := setup(args)
	if err != nil {
		return err
	}
	defer node.Shutdown()

	s, err := localization.NewSendLocalization(node, cfg)
	if err != nil {
		return err
	}
	defer s.Shutdown()
	if status := s.SendLocalizationCmd(); status != localization.StatusDispatched {
		return errors.Errorf("relocalization failed with status %d", status)
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	node, cfg, err := setup(args)
	if err != nil {
		return err
	}
	defer node.Shutdown()

	recorder, err := localization.NewPoseRecorder(node, cfg)
	if err != nil {
		return err
	}
	logger := node.Logger()
	logger.Infof("Recording %s to %s", cfg.PoseTopic, cfg.PoseFile)

	spinDone := make(chan struct{})
	go func() {
		defer close(spinDone)
		node.Spin()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		logger.Infof("Received %v, shutting down", sig)
	case <-spinDone:
	}

	err = recorder.Close()
	node.Shutdown()
	<-spinDone
	return err
}

func runTypes(cmd *cobra.Command, args []string) error {
	defs, err := wireTypes()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for _, d := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.kind, d.name, d.md5sum)
	}
	return w.Flush()
}
