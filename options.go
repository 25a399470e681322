package ddex

import (
	"cmp"
	"time"

	"github.com/ddexkit/ddex/internal/idgen"
	"github.com/ddexkit/ddex/internal/xmlparse"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

type int64Option struct {
	value int64
	set   bool
}

func (o int64Option) resolved() int64 {
	if !o.set {
		return 0
	}
	return o.value
}

// UnknownVersionPolicy decides what happens when no known ERN namespace is
// found. Defaulting to the latest version matches observed industry feeds
// but can misinterpret foreign documents, so the choice is caller-visible
// rather than hidden.
type UnknownVersionPolicy int

const (
	// UnknownVersionLatest parses unrecognized documents as the latest
	// supported version.
	UnknownVersionLatest UnknownVersionPolicy = iota
	// UnknownVersionReject fails with a version error instead.
	UnknownVersionReject
)

// ParseOptions configures parsing, resolution, and flattening.
type ParseOptions struct {
	maxDocumentSize     int64Option
	maxElementDepth     intOption
	maxEntityExpansions intOption
	maxDiagnostics      intOption
	allowDTD            bool
	allowExternal       bool
	timeout             time.Duration
	unknownVersion      UnknownVersionPolicy

	includeRawExtensions    bool
	includeComments         bool
	preserveUnknownElements bool
}

// NewParseOptions returns a default, valid parse options value: bounds on,
// DTD and external entities disabled, fidelity off.
func NewParseOptions() ParseOptions {
	return ParseOptions{}
}

// Validate validates parse options values.
func (o ParseOptions) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithMaxDocumentSize bounds total input bytes (0 uses the default).
func (o ParseOptions) WithMaxDocumentSize(value int64) ParseOptions {
	o.maxDocumentSize = int64Option{value: value, set: true}
	return o
}

// WithMaxElementDepth bounds element nesting (0 uses the default).
func (o ParseOptions) WithMaxElementDepth(value int) ParseOptions {
	o.maxElementDepth = intOption{value: value, set: true}
	return o
}

// WithMaxEntityExpansions bounds entity references (0 uses the default).
func (o ParseOptions) WithMaxEntityExpansions(value int) ParseOptions {
	o.maxEntityExpansions = intOption{value: value, set: true}
	return o
}

// WithMaxDiagnostics caps batched reference diagnostics (0 uses the default).
func (o ParseOptions) WithMaxDiagnostics(value int) ParseOptions {
	o.maxDiagnostics = intOption{value: value, set: true}
	return o
}

// WithAllowDTD enables DTD processing. Off by default; turning it on
// weakens the security posture.
func (o ParseOptions) WithAllowDTD(value bool) ParseOptions {
	o.allowDTD = value
	return o
}

// WithAllowExternalEntities enables external entity declarations. Off by
// default.
func (o ParseOptions) WithAllowExternalEntities(value bool) ParseOptions {
	o.allowExternal = value
	return o
}

// WithTimeout sets a cooperative parse deadline (0 means none).
func (o ParseOptions) WithTimeout(value time.Duration) ParseOptions {
	o.timeout = value
	return o
}

// WithUnknownVersionPolicy sets the unknown-namespace policy.
func (o ParseOptions) WithUnknownVersionPolicy(value UnknownVersionPolicy) ParseOptions {
	o.unknownVersion = value
	return o
}

// WithIncludeRawExtensions carries raw extension payloads through to the
// flat model so a later build can replay them.
func (o ParseOptions) WithIncludeRawExtensions(value bool) ParseOptions {
	o.includeRawExtensions = value
	return o
}

// WithIncludeComments carries XML comments through to the flat model.
func (o ParseOptions) WithIncludeComments(value bool) ParseOptions {
	o.includeComments = value
	return o
}

// WithPreserveUnknownElements carries unknown elements through as opaque
// payloads instead of dropping them.
func (o ParseOptions) WithPreserveUnknownElements(value bool) ParseOptions {
	o.preserveUnknownElements = value
	return o
}

type resolvedParseOptions struct {
	limits         xmlparse.Limits
	timeout        time.Duration
	maxDiagnostics int
	unknownVersion UnknownVersionPolicy

	includeRawExtensions    bool
	includeComments         bool
	preserveUnknownElements bool
}

func (o ParseOptions) withDefaults() (resolvedParseOptions, error) {
	limits, err := resolveParseLimits(
		o.maxDocumentSize.resolved(),
		o.maxElementDepth.resolved(),
		o.maxEntityExpansions.resolved(),
	)
	if err != nil {
		return resolvedParseOptions{}, err
	}
	limits.DisableDTD = !o.allowDTD
	limits.DisableExternal = !o.allowExternal

	maxDiag := o.maxDiagnostics.resolved()
	if maxDiag < 0 {
		return resolvedParseOptions{}, errInvalidLimit("max diagnostics")
	}
	maxDiag = cmp.Or(maxDiag, defaultMaxDiagnostics)
	return resolvedParseOptions{
		limits:                  limits,
		timeout:                 o.timeout,
		maxDiagnostics:          maxDiag,
		unknownVersion:          o.unknownVersion,
		includeRawExtensions:    o.includeRawExtensions,
		includeComments:         o.includeComments,
		preserveUnknownElements: o.preserveUnknownElements,
	}, nil
}

// IDStrategy selects how the builder assigns references the caller omitted.
type IDStrategy int

const (
	// IDSequential numbers references in emission order (A1, A2, R1, ...).
	// Not reproducible across reorderings; intended for throwaway builds.
	IDSequential IDStrategy = iota
	// IDUUID uses random UUIDs; unique but unstable across builds.
	IDUUID
	// IDUUIDv7 uses time-ordered UUIDs.
	IDUUIDv7
	// IDStableHash derives references from identity fields, making
	// republished catalogs idempotent and diffable.
	IDStableHash
)

// StableHashRecipe names the identity fields a stable hash reads and tags
// the derivation with a version. Changing the version is the only
// sanctioned way to change generated ids for existing content.
type StableHashRecipe struct {
	Version string
	Fields  []string
}

// PreflightLevel sets how preflight findings affect the build.
type PreflightLevel int

const (
	// PreflightWarn surfaces findings as warnings on the result.
	PreflightWarn PreflightLevel = iota
	// PreflightStrict fails the build on any finding.
	PreflightStrict
	// PreflightNone skips preflight entirely.
	PreflightNone
)

// LineEnding selects the emitted line ending.
type LineEnding int

const (
	// LineEndingLF is the canonical default.
	LineEndingLF LineEnding = iota
	// LineEndingCRLF is available for Windows consumers; hashes differ
	// from LF output.
	LineEndingCRLF
)

func (le LineEnding) chars() string {
	if le == LineEndingCRLF {
		return "\r\n"
	}
	return "\n"
}

// BuildOptions configures one build call.
type BuildOptions struct {
	idStrategy        IDStrategy
	stableHashRecipe  StableHashRecipe
	pretty            bool
	lineEnding        LineEnding
	verifyDeterminism intOption
	banner            bool
	preflightLevel    PreflightLevel
	preflighter       Preflighter
	timeout           time.Duration
}

// NewBuildOptions returns a default, valid build options value: canonical
// mode, sequential ids, preflight warnings.
func NewBuildOptions() BuildOptions {
	return BuildOptions{}
}

// Validate validates build options values.
func (o BuildOptions) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithIDStrategy sets the identifier assignment strategy.
func (o BuildOptions) WithIDStrategy(value IDStrategy) BuildOptions {
	o.idStrategy = value
	return o
}

// WithStableHashRecipe overrides the stable-hash recipe (empty uses v1).
func (o BuildOptions) WithStableHashRecipe(value StableHashRecipe) BuildOptions {
	o.stableHashRecipe = value
	return o
}

// WithPretty emits indented, human-readable XML. Pretty output is not
// hash-verifiable; canonical mode is the default.
func (o BuildOptions) WithPretty(value bool) BuildOptions {
	o.pretty = value
	return o
}

// WithLineEnding sets the emitted line ending.
func (o BuildOptions) WithLineEnding(value LineEnding) BuildOptions {
	o.lineEnding = value
	return o
}

// WithVerifyDeterminism rebuilds the output n times and fails the build if
// any byte differs (0 disables the check).
func (o BuildOptions) WithVerifyDeterminism(n int) BuildOptions {
	o.verifyDeterminism = intOption{value: n, set: true}
	return o
}

// WithProvenanceBanner emits a leading comment naming the generator and
// canonicalization version. The canonical hash ignores the banner.
func (o BuildOptions) WithProvenanceBanner(value bool) BuildOptions {
	o.banner = value
	return o
}

// WithPreflightLevel sets how preflight findings are treated.
func (o BuildOptions) WithPreflightLevel(value PreflightLevel) BuildOptions {
	o.preflightLevel = value
	return o
}

// WithPreflighter injects the validation engine consulted before emission.
func (o BuildOptions) WithPreflighter(value Preflighter) BuildOptions {
	o.preflighter = value
	return o
}

// WithTimeout sets a cooperative build deadline (0 means none).
func (o BuildOptions) WithTimeout(value time.Duration) BuildOptions {
	o.timeout = value
	return o
}

type resolvedBuildOptions struct {
	idStrategy        IDStrategy
	recipe            idgen.Recipe
	pretty            bool
	lineEnding        string
	verifyDeterminism int
	banner            bool
	preflightLevel    PreflightLevel
	preflighter       Preflighter
	timeout           time.Duration
}

func (o BuildOptions) withDefaults() (resolvedBuildOptions, error) {
	verify := o.verifyDeterminism.resolved()
	if verify < 0 {
		return resolvedBuildOptions{}, errInvalidLimit("verify determinism iterations")
	}
	recipe := idgen.Recipe{Version: o.stableHashRecipe.Version, Fields: o.stableHashRecipe.Fields}
	if len(recipe.Fields) == 0 {
		recipe = idgen.RecipeV1
	}
	preflighter := o.preflighter
	if preflighter == nil {
		preflighter = defaultPreflighter{}
	}
	return resolvedBuildOptions{
		idStrategy:        o.idStrategy,
		recipe:            recipe,
		pretty:            o.pretty,
		lineEnding:        o.lineEnding.chars(),
		verifyDeterminism: verify,
		banner:            o.banner,
		preflightLevel:    o.preflightLevel,
		preflighter:       preflighter,
		timeout:           o.timeout,
	}, nil
}

func (r resolvedBuildOptions) generator() idgen.Generator {
	return generatorFor(r.idStrategy, r.recipe)
}

func generatorFor(strategy IDStrategy, recipe idgen.Recipe) idgen.Generator {
	switch strategy {
	case IDUUID:
		return idgen.NewUUID()
	case IDUUIDv7:
		return idgen.NewUUIDv7()
	case IDStableHash:
		return idgen.NewStableHash(recipe)
	default:
		return idgen.NewSequential()
	}
}

// StreamOptions configures a streaming assembler.
type StreamOptions struct {
	maxBufferSize int64Option
	idStrategy    IDStrategy
	recipe        StableHashRecipe
	lineEnding    LineEnding
}

// NewStreamOptions returns a default, valid stream options value.
func NewStreamOptions() StreamOptions {
	return StreamOptions{}
}

// WithMaxBufferSize bounds the per-entity emission buffer (0 uses the
// default of 10 MiB). Exceeding the bound aborts the stream.
func (o StreamOptions) WithMaxBufferSize(value int64) StreamOptions {
	o.maxBufferSize = int64Option{value: value, set: true}
	return o
}

// WithIDStrategy sets the identifier assignment strategy.
func (o StreamOptions) WithIDStrategy(value IDStrategy) StreamOptions {
	o.idStrategy = value
	return o
}

// WithStableHashRecipe overrides the stable-hash recipe (empty uses v1).
func (o StreamOptions) WithStableHashRecipe(value StableHashRecipe) StreamOptions {
	o.recipe = value
	return o
}

// WithLineEnding sets the emitted line ending.
func (o StreamOptions) WithLineEnding(value LineEnding) StreamOptions {
	o.lineEnding = value
	return o
}

const defaultMaxBufferSize = 10 << 20

type resolvedStreamOptions struct {
	maxBufferSize int64
	idStrategy    IDStrategy
	recipe        idgen.Recipe
	lineEnding    string
}

func (o StreamOptions) withDefaults() (resolvedStreamOptions, error) {
	size := o.maxBufferSize.resolved()
	if size < 0 {
		return resolvedStreamOptions{}, errInvalidLimit("max buffer size")
	}
	if size == 0 {
		size = defaultMaxBufferSize
	}
	recipe := idgen.Recipe{Version: o.recipe.Version, Fields: o.recipe.Fields}
	if len(recipe.Fields) == 0 {
		recipe = idgen.RecipeV1
	}
	return resolvedStreamOptions{
		maxBufferSize: size,
		idStrategy:    o.idStrategy,
		recipe:        recipe,
		lineEnding:    o.lineEnding.chars(),
	}, nil
}

func (r resolvedStreamOptions) generator() idgen.Generator {
	return generatorFor(r.idStrategy, r.recipe)
}
