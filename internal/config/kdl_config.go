package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .lri.kdl file in dir.
// Returns (nil, nil) when no config file exists so callers can fall back to
// defaults without branching on errors.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	return LoadKDLFile(kdlPath)
}

// LoadKDLFile loads configuration from an explicit KDL file path. A relative
// project root inside the file resolves against the file's directory.
func LoadKDLFile(kdlPath string) (*Config, error) {
	dir := filepath.Dir(kdlPath)

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", kdlPath, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Resolve the root relative to the directory containing the config file
	// so the same file works from any working directory.
	if cfg.Project.Root == "" {
		cfg.Project.Root = dir
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(dir, cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
		cfg.Project.Root = abs
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}
	cfg.path = kdlPath

	return cfg, nil
}

// parseKDL fills a default config from the KDL document.
func parseKDL(content string) (*Config, error) {
	cfg := Default(".")
	cfg.Project.Root = "" // resolved by the caller against the config location

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "shop" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				case "min_rescan_interval_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MinRescanIntervalSec = v
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxResults = v
					}
				case "service_prefixes":
					cfg.Search.ServicePrefixes = sanitizePrefixes(collectStringArgs(cn))
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

// render produces the canonical KDL form written by save().
func (c *Config) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "project {\n    root %q\n    name %q\n}\n", c.Project.Root, c.Project.Name)
	fmt.Fprintf(&b, "index {\n    max_file_size %d\n    watch_mode %v\n    watch_debounce_ms %d\n    min_rescan_interval_sec %d\n}\n",
		c.Index.MaxFileSize, c.Index.WatchMode, c.Index.WatchDebounceMs, c.Index.MinRescanIntervalSec)

	b.WriteString("search {\n")
	fmt.Fprintf(&b, "    max_results %d\n", c.Search.MaxResults)
	if len(c.Search.ServicePrefixes) > 0 {
		b.WriteString("    service_prefixes")
		for _, p := range c.Search.ServicePrefixes {
			fmt.Fprintf(&b, " %q", p)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")

	if len(c.Include) > 0 {
		b.WriteString("include")
		for _, p := range c.Include {
			fmt.Fprintf(&b, " %q", p)
		}
		b.WriteString("\n")
	}
	if len(c.Exclude) > 0 {
		b.WriteString("exclude")
		for _, p := range c.Exclude {
			fmt.Fprintf(&b, " %q", p)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Helper functions leveraging the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: strings appear as child nodes whose name is the value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
