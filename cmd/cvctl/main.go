package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pramaanvault/certvault/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cvctl",
	Short: "CertVault command-line interface",
	Long: `cvctl talks to a CertVault server.

It anchors certificate batches in the ledger (ingest), checks candidate
certificates against previously anchored hashes (verify), and reports the
server's ledger connection (info).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.certvault")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.certvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "CertVault server URL (default http://localhost:8080)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

// ── ingest ───────────────────────────────────────────────────────────────────

var ingestCmd = &cobra.Command{
	Use:   "ingest <certificates.csv>",
	Short: "Anchor a CSV of certificate records in the ledger",
	Long: `Ingest uploads a delimiter-separated certificate file and anchors the hash
of every row in the ledger as one atomic batch.

The header row must name exactly the six certificate fields (RollNo, Name,
Course, Branch, Grade, Year) in any order. The command blocks until the
ledger confirms the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL, client.WithTimeout(3*time.Minute))

		result, err := c.IngestFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("anchored %d certificate hashes\n", result.HashCount)
		fmt.Printf("transaction: %s\n", result.TxID)
		fmt.Printf("cost consumed: %d units\n", result.CostConsumed)
		return nil
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var (
	verifyRecord client.Record
	verifyFormat string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a candidate certificate against the ledger",
	Long: `Verify hashes the given certificate fields and asks the server whether that
hash was previously anchored. All six fields are required; a single changed
character yields a different hash and an invalid result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL)

		result, err := c.Verify(cmd.Context(), verifyRecord)
		if err != nil {
			return err
		}

		if verifyFormat == "json" {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		if !result.IsValid {
			fmt.Printf("INVALID: hash %s is not anchored in the ledger\n", result.CandidateHash)
			// An invalid certificate is a legitimate answer, not a failure, so
			// the command still exits 0. Scripts should parse the output.
			return nil
		}
		fmt.Println("VALID")
		fmt.Printf("hash:   %s\n", result.CandidateHash)
		fmt.Printf("issued: %s\n", result.Timestamp.Format(time.RFC3339))
		fmt.Printf("issuer: %s\n", result.Issuer)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRecord.RollNo, "roll-no", "", "roll number")
	verifyCmd.Flags().StringVar(&verifyRecord.Name, "name", "", "certificate holder name")
	verifyCmd.Flags().StringVar(&verifyRecord.Course, "course", "", "course")
	verifyCmd.Flags().StringVar(&verifyRecord.Branch, "branch", "", "branch")
	verifyCmd.Flags().StringVar(&verifyRecord.Grade, "grade", "", "grade")
	verifyCmd.Flags().StringVar(&verifyRecord.Year, "year", "", "year")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "output format: text or json")

	for _, flag := range []string{"roll-no", "name", "course", "branch", "grade", "year"} {
		_ = verifyCmd.MarkFlagRequired(flag)
	}
}

// ── info ─────────────────────────────────────────────────────────────────────

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the server's ledger connection details",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL)

		info, err := c.Info(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("contract: %s\n", info.ContractAddress)
		fmt.Printf("signer:   %s\n", info.ActiveSigner)
		fmt.Printf("network:  %s\n", info.NetworkID)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cvctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cvctl", version)
	},
}
