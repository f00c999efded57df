package tools

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
)

// DefaultSearchLimit bounds Catalog.Search when no limit is given.
const DefaultSearchLimit = 10

// Catalog indexes registered tools for search and documentation.
type Catalog struct {
	idx   index.Index
	docs  *tooldoc.InMemoryStore
	tools []model.Tool
}

// NewCatalog indexes every tool in r with a BM25 searcher and registers its
// documentation.
func NewCatalog(r *Registry) (*Catalog, error) {
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})

	tools, err := r.ListTools()
	if err != nil {
		return nil, err
	}
	for _, tool := range tools {
		if err := idx.RegisterTool(tool, model.NewLocalBackend(tool.Name)); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", tool.Name, err)
		}
		def, _ := r.Get(tool.Name)
		if err := docs.RegisterDoc(ToolID(tool.Name), tooldoc.DocEntry{
			Summary:  def.Summary,
			Notes:    def.Description,
			Examples: def.Examples,
		}); err != nil {
			return nil, fmt.Errorf("documenting %s: %w", tool.Name, err)
		}
	}
	return &Catalog{idx: idx, docs: docs, tools: tools}, nil
}

// ToolID returns the catalog identifier of a tool name.
func ToolID(name string) string {
	return Namespace + ":" + name
}

// Search returns tools matching query. An empty query lists every tool.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if strings.TrimSpace(query) == "" {
		return c.all(limit), nil
	}
	return c.idx.Search(query, limit)
}

func (c *Catalog) all(limit int) []index.Summary {
	out := make([]index.Summary, 0, min(limit, len(c.tools)))
	for _, tool := range c.tools {
		if len(out) == limit {
			break
		}
		out = append(out, index.Summary{
			ID:               ToolID(tool.Name),
			Name:             tool.Name,
			Namespace:        tool.Namespace,
			ShortDescription: tool.Description,
			Tags:             tool.Tags,
		})
	}
	return out
}

// Describe returns the full documentation of the named tool.
func (c *Catalog) Describe(name string) (tooldoc.ToolDoc, error) {
	doc, err := c.docs.DescribeTool(ToolID(name), tooldoc.DetailFull)
	if err != nil {
		return tooldoc.ToolDoc{}, fmt.Errorf("%w: %s: %w", ErrMethodNotFound, name, err)
	}
	return doc, nil
}

// Examples returns up to maxExamples usage examples of the named tool.
func (c *Catalog) Examples(name string, maxExamples int) ([]tooldoc.ToolExample, error) {
	return c.docs.ListExamples(ToolID(name), maxExamples)
}

// Namespaces lists the indexed namespaces.
func (c *Catalog) Namespaces() ([]string, error) {
	return c.idx.ListNamespaces()
}
