package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ddexkit/ddex"
)

var buildCmd = &cobra.Command{
	Use:   "build <request.yaml>",
	Short: "Build canonical ERN XML from a YAML request file",
	Long: `Build reads a declarative release request from a YAML file and emits
canonical, byte-deterministic ERN XML.

Example request file:

  header:
    sender:
      name: Example Label
    recipient:
      name: Example DSP
  releases:
    - title: Midnight Sessions
      artist: The Example Band
      icpn: "1234567890123"
      tracks:
        - title: Opening Theme
          isrc: USRC12345678
          duration: PT3M25S
  deals:
    - commercial_model_type: SubscriptionModel
      usage_types: [OnDemandStream]
      territory_codes: [Worldwide]`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

type buildFlagValues struct {
	out        string
	ernVersion string
	idStrategy string
	pretty     bool
	banner     bool
	strict     bool
	verify     int
}

var buildFlags buildFlagValues

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildFlags.out, "out", "o", "", "Output file (default stdout)")
	buildCmd.Flags().StringVar(&buildFlags.ernVersion, "ern", "4.3", "ERN version to emit (3.8.2, 4.2, 4.3)")
	buildCmd.Flags().StringVar(&buildFlags.idStrategy, "ids", "sequential", "ID strategy: sequential, uuid, uuidv7, stable-hash")
	buildCmd.Flags().BoolVar(&buildFlags.pretty, "pretty", false, "Emit indented, non-canonical output")
	buildCmd.Flags().BoolVar(&buildFlags.banner, "banner", false, "Emit a provenance banner comment")
	buildCmd.Flags().BoolVar(&buildFlags.strict, "strict", false, "Fail the build on preflight warnings")
	buildCmd.Flags().IntVar(&buildFlags.verify, "verify", 0, "Rebuild n times and fail on any byte difference")
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var req ddex.BuildRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode request file: %w", err)
	}
	version, ok := ddex.VersionFromString(buildFlags.ernVersion)
	if !ok {
		return fmt.Errorf("unknown ERN version %q", buildFlags.ernVersion)
	}
	req.Version = version

	strategy, err := idStrategy(buildFlags.idStrategy)
	if err != nil {
		return err
	}
	opts := ddex.NewBuildOptions().
		WithIDStrategy(strategy).
		WithPretty(buildFlags.pretty).
		WithProvenanceBanner(buildFlags.banner).
		WithVerifyDeterminism(buildFlags.verify)
	if buildFlags.strict {
		opts = opts.WithPreflightLevel(ddex.PreflightStrict)
	}

	result, err := ddex.BuildWithOptions(&req, opts)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		logger.Warn("preflight", zap.String("code", w.Code), zap.String("path", w.Path), zap.String("message", w.Message))
	}
	logger.Info("built document",
		zap.String("version", version.String()),
		zap.Int("releases", result.Stats.Releases),
		zap.Int("tracks", result.Stats.Tracks),
		zap.Int64("bytes", result.Stats.Bytes),
		zap.String("hash", result.CanonicalHash),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)

	if buildFlags.out == "" {
		_, err = cmd.OutOrStdout().Write(result.XML)
		return err
	}
	return os.WriteFile(buildFlags.out, result.XML, 0o644)
}

func idStrategy(name string) (ddex.IDStrategy, error) {
	switch name {
	case "sequential":
		return ddex.IDSequential, nil
	case "uuid":
		return ddex.IDUUID, nil
	case "uuidv7":
		return ddex.IDUUIDv7, nil
	case "stable-hash":
		return ddex.IDStableHash, nil
	default:
		return 0, fmt.Errorf("unknown id strategy %q", name)
	}
}
