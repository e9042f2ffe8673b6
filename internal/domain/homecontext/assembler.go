package homecontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Bundle is the assembled context for one turn.
type Bundle struct {
	ContextText string         `json:"context_text"`
	ImageURLs   []string       `json:"image_urls"`
	Metadata    BundleMetadata `json:"metadata"`
}

// BundleMetadata records what contributed to the bundle.
type BundleMetadata struct {
	Sources     []string `json:"sources"`
	TotalChunks int      `json:"total_chunks"`
}

// IsEmpty reports whether the bundle carries no context.
func (b Bundle) IsEmpty() bool {
	return b.ContextText == "" && len(b.ImageURLs) == 0
}

// EmptyBundle returns a bundle with non-nil slices.
func EmptyBundle() Bundle {
	return Bundle{ImageURLs: []string{}, Metadata: BundleMetadata{Sources: []string{}}}
}

// AttachmentSummary is the analysis of a file uploaded with the current turn.
type AttachmentSummary struct {
	URL      string
	Filename string
	Summary  string
	IsImage  bool
}

// Cache stores assembled bundles.
type Cache interface {
	Get(key string) (Bundle, bool)
	Add(key string, bundle Bundle)
}

// Options configure an Assembler.
type Options struct {
	MaxChars int
	// Ranker is tried first; KeywordRanker is used when it fails or is nil.
	Ranker Ranker
	Cache  Cache
}

// Assembler builds bounded context text from home data.
type Assembler struct {
	store    Store
	ranker   Ranker
	fallback Ranker
	cache    Cache
	maxChars int
	log      zerolog.Logger
}

// NewAssembler wires an assembler over store.
func NewAssembler(store Store, opts Options, log zerolog.Logger) *Assembler {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 6000
	}
	return &Assembler{
		store:    store,
		ranker:   opts.Ranker,
		fallback: KeywordRanker{},
		cache:    opts.Cache,
		maxChars: opts.MaxChars,
		log:      log.With().Str("component", "context-assembler").Logger(),
	}
}

// Assemble returns the top-k fragments for query as bounded text. It never
// fails: no home yields an empty bundle and retrieval errors are logged.
func (a *Assembler) Assemble(ctx context.Context, homeID *string, query string, k int, includeImages bool) Bundle {
	if homeID == nil || strings.TrimSpace(*homeID) == "" || a.store == nil {
		return EmptyBundle()
	}
	key := cacheKey(*homeID, query, k, includeImages)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			return cached
		}
	}

	snapshot, err := a.store.Snapshot(ctx, *homeID)
	if err != nil {
		a.log.Warn().Err(err).Str("home_id", *homeID).Msg("home context retrieval failed, continuing without it")
		return EmptyBundle()
	}

	ranked := a.rank(ctx, *homeID, query, Fragments(snapshot), k)
	bundle := a.render(ranked, includeImages)
	if a.cache != nil {
		a.cache.Add(key, bundle)
	}
	return bundle
}

func (a *Assembler) rank(ctx context.Context, homeID, query string, fragments []Fragment, k int) []Fragment {
	if len(fragments) == 0 {
		return nil
	}
	if a.ranker != nil {
		ranked, err := a.ranker.Rank(ctx, homeID, query, fragments, k)
		if err == nil {
			return ranked
		}
		a.log.Warn().Err(err).Msg("semantic ranking failed, using keyword ranking")
	}
	ranked, _ := a.fallback.Rank(ctx, homeID, query, fragments, k)
	return ranked
}

func (a *Assembler) render(fragments []Fragment, includeImages bool) Bundle {
	bundle := EmptyBundle()
	var b strings.Builder
	for _, f := range fragments {
		line := fmt.Sprintf("[%s] %s\n", f.Source, f.Text)
		if b.Len()+len(line) > a.maxChars {
			continue
		}
		b.WriteString(line)
		bundle.Metadata.TotalChunks++
		bundle.Metadata.Sources = appendUnique(bundle.Metadata.Sources, f.Source)
		if includeImages && f.ImageURL != "" {
			bundle.ImageURLs = appendUnique(bundle.ImageURLs, f.ImageURL)
		}
	}
	bundle.ContextText = strings.TrimRight(b.String(), "\n")
	return bundle
}

// MergeAttachments appends one line per attachment after the home fragments
// and merges image URLs. Merging the same attachments again is a no-op.
func MergeAttachments(bundle Bundle, attachments []AttachmentSummary) Bundle {
	out := Bundle{
		ContextText: bundle.ContextText,
		ImageURLs:   append([]string{}, bundle.ImageURLs...),
		Metadata: BundleMetadata{
			Sources:     append([]string{}, bundle.Metadata.Sources...),
			TotalChunks: bundle.Metadata.TotalChunks,
		},
	}
	for _, att := range attachments {
		line := attachmentLine(att)
		if line == "" {
			continue
		}
		if !containsLine(out.ContextText, line) {
			if out.ContextText != "" {
				out.ContextText += "\n"
			}
			out.ContextText += line
			out.Metadata.TotalChunks++
			out.Metadata.Sources = appendUnique(out.Metadata.Sources, SourceAttachments)
		}
		if att.IsImage && att.URL != "" {
			out.ImageURLs = appendUnique(out.ImageURLs, att.URL)
		}
	}
	return out
}

func attachmentLine(att AttachmentSummary) string {
	summary := strings.Join(strings.Fields(att.Summary), " ")
	if summary == "" {
		return ""
	}
	name := att.Filename
	if name == "" {
		name = att.URL
	}
	return fmt.Sprintf("[%s] %s: %s", SourceAttachments, name, summary)
}

func containsLine(text, line string) bool {
	for _, l := range strings.Split(text, "\n") {
		if l == line {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}

func cacheKey(homeID, query string, k int, includeImages bool) string {
	return fmt.Sprintf("%s|%d|%t|%s", homeID, k, includeImages, strings.ToLower(strings.TrimSpace(query)))
}
