package capability

import (
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNamespace is the tool namespace used for capabilities.
const DefaultNamespace = "host"

// Catalog indexes capabilities for search and documentation.
type Catalog struct {
	namespace string
	index     index.Index
	docs      *tooldoc.InMemoryStore
}

// NewCatalog creates a catalog backed by an in-memory BM25 index.
// An empty namespace uses DefaultNamespace.
func NewCatalog(namespace string) *Catalog {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	return &Catalog{
		namespace: namespace,
		index:     idx,
		docs:      tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx}),
	}
}

// ToolID returns the catalog ID of a capability name.
func (c *Catalog) ToolID(name string) string {
	return c.namespace + ":" + name
}

// Add indexes d and records its documentation.
func (c *Catalog) Add(d Descriptor) error {
	if err := c.index.RegisterTool(Tool(d, c.namespace), model.NewLocalBackend(d.Name)); err != nil {
		return err
	}

	entry := tooldoc.DocEntry{
		Summary: d.Description,
		Notes:   notes(d),
	}
	if d.Usage != "" {
		entry.Examples = []tooldoc.ToolExample{{
			Title: d.Usage,
			Args:  map[string]any{"arguments": usageArgs(d)},
		}}
	}
	return c.docs.RegisterDoc(c.ToolID(d.Name), entry)
}

// Search returns capabilities matching query, best match first.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	return c.index.Search(query, limit)
}

// Describe returns documentation for a capability name.
func (c *Catalog) Describe(name string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	return c.docs.DescribeTool(c.ToolID(name), level)
}

// Tool converts a descriptor into a discoverable tool definition.
func Tool(d Descriptor, namespace string) model.Tool {
	readOnly := d.Risk == RiskBenign
	openWorld := true
	title := cases.Title(language.Und).String(d.Name)

	return model.Tool{
		Tool: mcp.Tool{
			Name:        d.Name,
			Title:       title,
			Description: d.Description,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"arguments": map[string]any{
						"type":        "string",
						"description": "Command-line arguments passed to " + d.Executable,
					},
					"timeout_seconds": map[string]any{
						"type":    "integer",
						"minimum": 1,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				Title:         title,
				ReadOnlyHint:  readOnly,
				OpenWorldHint: &openWorld,
			},
		},
		Namespace: namespace,
		Tags:      model.NormalizeTags(tags(d)),
	}
}

func tags(d Descriptor) []string {
	out := []string{d.Risk.String(), d.Executable}
	if d.Package != "" {
		out = append(out, d.Package)
	}
	return out
}

func notes(d Descriptor) string {
	var b strings.Builder
	b.WriteString("Runs " + d.Executable)
	if d.Package != "" {
		b.WriteString(" (package " + d.Package + ")")
	}
	b.WriteString(". Risk: " + d.Risk.String() + ".")
	for _, def := range d.Defaults {
		b.WriteString(" Adds " + strings.Join(def.Prepend, " ") +
			" unless " + strings.Join(def.Unless, " or ") + " is given.")
	}
	return b.String()
}

func usageArgs(d Descriptor) string {
	fields := strings.Fields(d.Usage)
	if len(fields) > 0 && fields[0] == d.Name {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
