package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmarquez/rlaunch/pkg/trainer"
)

var argsOneLine bool

var argsCmd = &cobra.Command{
	Use:   "args",
	Short: "Print the trainer argument list without launching",
	Long: `Build and print the exact ordered argument list a run with the same
flags would pass to the trainer. Useful for inspecting profiles and for
pasting a command elsewhere.`,
	RunE:         runArgs,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(argsCmd)
	addTrainerFlags(argsCmd)
	argsCmd.Flags().StringVar(&runProfile, "profile", "", "Named launch profile to use as base configuration")
	argsCmd.Flags().BoolVar(&argsOneLine, "one-line", false, "Print as a single shell line")
}

func runArgs(cmd *cobra.Command, args []string) error {
	params, err := buildParams(cmd)
	if err != nil {
		return err
	}

	redisAddress, err := resolveRedisAddress(runRedisPort)
	if err != nil {
		return err
	}
	params.RedisAddress = redisAddress

	trainerArgs, err := trainer.BuildArgs(params)
	if err != nil {
		return err
	}

	if argsOneLine {
		fmt.Println(strings.Join(trainerArgs, " "))
		return nil
	}
	for _, a := range trainerArgs {
		fmt.Println(a)
	}
	return nil
}
