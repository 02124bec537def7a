package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmarquez/rlaunch/pkg/sysinfo"
)

var (
	recommendEnvironment string
	recommendOutput      string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend launch sizing for this machine",
	Long: `Analyzes system hardware (CPU, RAM, GPU) and suggests a
--num-processes value for rollout workers. Takes the deployment
environment (development, production) into account.`,
	RunE:         runRecommend,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVarP(&recommendEnvironment, "environment", "e", "development",
		"Deployment environment: development, production")
	recommendCmd.Flags().StringVarP(&recommendOutput, "output", "o", "text",
		"Output format: text, json, yaml")
}

type recommendResult struct {
	Hardware       *sysinfo.Capabilities  `json:"hardware" yaml:"hardware"`
	NodeClass      string                 `json:"node_class" yaml:"node_class"`
	Recommendation sysinfo.Recommendation `json:"recommendation" yaml:"recommendation"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	caps, err := sysinfo.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect hardware: %w", err)
	}

	result := recommendResult{
		Hardware:       caps,
		NodeClass:      string(sysinfo.Class(caps.CPUThreads, caps.RAMTotalBytes)),
		Recommendation: sysinfo.RecommendProcesses(caps, recommendEnvironment),
	}

	switch recommendOutput {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)

	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(result)

	default: // text
		fmt.Println("Hardware:")
		fmt.Printf("  CPU: %s (%d threads)\n", caps.CPUModel, caps.CPUThreads)
		fmt.Printf("  RAM: %s\n", sysinfo.FormatRAM(caps.RAMTotalBytes))
		if caps.HasGPU {
			fmt.Printf("  GPU: %s\n", caps.GPUType)
		} else {
			fmt.Println("  GPU: Not detected")
		}
		fmt.Printf("  Node Class: %s\n", result.NodeClass)
		fmt.Println()
		fmt.Println("Recommendation:")
		fmt.Printf("  --num-processes %d\n", result.Recommendation.NumProcesses)
		fmt.Println()
		fmt.Printf("Rationale:\n  %s\n", result.Recommendation.Rationale)
		return nil
	}
}
