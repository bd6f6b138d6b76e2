package digest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// lastModifiedKey is the preamble field updated on every merge.
	lastModifiedKey = "last_modified"
	// lastModifiedLayout is the date form stored in the preamble.
	lastModifiedLayout = "2006-01-02"
)

// headerPattern matches the static header synthesized for new partition
// files: an H1 line, a blank line, a one-line blurb and a trailing blank
// line. Files whose header does not match this shape keep their content
// untouched below newly prepended blocks.
var headerPattern = regexp.MustCompile(`^# [^\n]+\n\n[^\n]+\n\n`)

// Store owns the partition files beneath a docs directory. It is the only
// component that writes them; the index builder and extractor are readers.
type Store struct {
	dir    string
	scheme BucketScheme
	logger *slog.Logger
	now    func() time.Time
}

// NewStore constructs a partition store rooted at dir.
func NewStore(dir string, scheme BucketScheme, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("partition directory is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		dir:    dir,
		scheme: scheme,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Dir returns the partition directory the store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// ExistingIDs scans the bucket's partition file and returns every record
// number found in a block heading. A missing file yields an empty set, and
// malformed regions simply contribute no matches.
func (s *Store) ExistingIDs(b Bucket) (map[int]struct{}, error) {
	ids := make(map[int]struct{})

	raw, err := os.ReadFile(filepath.Join(s.dir, b.Filename()))
	if errors.Is(err, fs.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition %q: %w", b.Filename(), err)
	}

	for _, m := range headingPattern.FindAllStringSubmatch(string(raw), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids[n] = struct{}{}
	}
	return ids, nil
}

// Merge prepends the rendered blocks, in their given order, above all prior
// content of the bucket's partition file. Existing preambles keep every key
// except last_modified; files without a recognizable preamble or header are
// preserved verbatim below the new blocks rather than rewritten.
func (s *Store) Merge(b Bucket, blocks []string) error {
	if len(blocks) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create partition directory %q: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, b.Filename())
	now := s.now().UTC()

	var front, header, body string
	hasPreamble := false

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		front, err = s.newPreamble(b, now)
		if err != nil {
			return err
		}
		header = s.newHeader(b)
		hasPreamble = true
	case err != nil:
		return fmt.Errorf("read partition %q: %w", path, err)
	default:
		content := string(raw)
		inner, rest, ok := splitPreamble(content)
		if !ok {
			// Legacy file without a preamble: keep all of it below the new
			// blocks and do not synthesize a second header.
			s.logger.Warn("partition file has no preamble, prepending without header", "file", b.Filename())
			body = content
			break
		}
		front, err = updateLastModified(inner, now)
		if err != nil {
			s.logger.Warn("partition preamble is not valid yaml, prepending without header", "file", b.Filename(), "error", err)
			body = content
			break
		}
		hasPreamble = true
		if loc := headerPattern.FindStringIndex(rest); loc != nil {
			header = rest[:loc[1]]
			body = rest[loc[1]:]
		} else {
			s.logger.Warn("partition header did not match expected shape", "file", b.Filename())
			body = rest
		}
	}

	var buf strings.Builder
	if hasPreamble {
		buf.WriteString("---\n")
		buf.WriteString(front)
		buf.WriteString("---\n\n")
	}
	buf.WriteString(header)
	buf.WriteString(strings.Join(blocks, "\n"))
	buf.WriteString("\n")
	buf.WriteString(body)

	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write partition %q: %w", path, err)
	}

	s.logger.Info("merged entries into partition", "file", b.Filename(), "entries", len(blocks))
	return nil
}

// partitionPreamble is the synthesized frontmatter for a fresh partition file.
type partitionPreamble struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	LastModified string `yaml:"last_modified"`
}

// newPreamble renders the frontmatter body for a fresh partition file.
func (s *Store) newPreamble(b Bucket, now time.Time) (string, error) {
	p := partitionPreamble{
		Title:        fmt.Sprintf("Merged pull requests: %s", b.Label(s.scheme)),
		Description:  "Automatically generated summaries of merged pull requests.",
		LastModified: now.Format(lastModifiedLayout),
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("encode partition preamble: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finalize partition preamble: %w", err)
	}
	return buf.String(), nil
}

// newHeader renders the static header block for a fresh partition file.
func (s *Store) newHeader(b Bucket) string {
	return fmt.Sprintf("# Merged pull requests: %s\n\nAutomatically generated summaries of pull requests merged during this period.\n\n", b.Label(s.scheme))
}

// splitPreamble separates a leading "---" delimited frontmatter block from
// the rest of the document. It returns the inner yaml text and the content
// after the closing delimiter (with one following blank line consumed).
func splitPreamble(content string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", "", false
	}
	after := content[len("---\n"):]
	end := strings.Index(after, "\n---\n")
	if end < 0 {
		return "", "", false
	}
	inner = after[:end+1]
	rest = after[end+len("\n---\n"):]
	rest = strings.TrimPrefix(rest, "\n")
	return inner, rest, true
}

// updateLastModified rewrites only the last_modified value inside an
// existing preamble, preserving every other key and their order.
func updateLastModified(inner string, now time.Time) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(inner), &doc); err != nil {
		return "", fmt.Errorf("parse preamble: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return "", fmt.Errorf("preamble is not a key-value mapping")
	}

	stamp := now.Format(lastModifiedLayout)
	mapping := doc.Content[0]
	updated := false
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == lastModifiedKey {
			mapping.Content[i+1].SetString(stamp)
			updated = true
			break
		}
	}
	if !updated {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: lastModifiedKey},
			&yaml.Node{Kind: yaml.ScalarNode, Value: stamp},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("encode preamble: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finalize preamble: %w", err)
	}
	return buf.String(), nil
}
