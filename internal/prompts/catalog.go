// Package prompts loads the system prompts of the agent under test.
package prompts

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog maps "<agentType>_<country>" keys (country lower-cased) to system prompts.
type Catalog struct {
	prompts map[string]string
}

// NewCatalog creates a catalog from an in-memory map.
func NewCatalog(prompts map[string]string) *Catalog {
	c := &Catalog{prompts: make(map[string]string, len(prompts))}
	for k, v := range prompts {
		c.prompts[k] = v
	}
	return c
}

// Load reads a JSON or YAML prompt file. A missing file yields an empty
// catalog so every lookup uses the fallback prompt.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("WARN: prompt file %s not found, using fallback prompts", path)
			return NewCatalog(nil), nil
		}
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	// JSON documents are valid YAML, so one decoder handles both formats.
	var prompts map[string]string
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts %s: %w", path, err)
	}
	log.Printf("INFO: Loaded %d lawyer prompts from %s", len(prompts), path)
	return NewCatalog(prompts), nil
}

// Key returns the catalog key for an agent type and country.
func Key(agentType, country string) string {
	return agentType + "_" + strings.ToLower(country)
}

// Len returns the number of prompts in the catalog.
func (c *Catalog) Len() int {
	return len(c.prompts)
}

// Lookup returns the prompt stored for agentType and country.
func (c *Catalog) Lookup(agentType, country string) (string, bool) {
	p, ok := c.prompts[Key(agentType, country)]
	return p, ok
}

// SystemPrompt returns the stored prompt or the generic lawyer prompt for country.
func (c *Catalog) SystemPrompt(agentType, country string) string {
	key := Key(agentType, country)
	if p, ok := c.Lookup(agentType, country); ok {
		log.Printf("INFO: Using lawyer prompt from file: %s (%d chars)", key, len(p))
		return p
	}
	log.Printf("WARN: No prompt found for %s, using fallback", key)
	return Fallback(country)
}

// Fallback is the generic lawyer prompt used when the catalog has no entry.
func Fallback(country string) string {
	return fmt.Sprintf(`You are the JustHemis Lawyer AI - an elite legal AI assistant specializing in %[1]s law.

Your role is to:
1. Answer legal questions with precision and depth
2. Cite relevant laws, statutes, and legal principles
3. Explain complex legal concepts clearly
4. Provide practical legal guidance
5. Reference case law and precedents when relevant

You have expertise in %[1]s law including:
- Criminal law, civil law, contract law, tort law
- Defamation, employment law, data protection
- Court procedures and legal strategy

When answering:
- Be thorough and comprehensive
- Cite specific laws and legal principles
- Explain the reasoning behind legal rules
- Provide practical implications
- Use professional legal terminology appropriately
- Structure responses clearly with headings if needed

Remember: You are being tested on your legal knowledge, so demonstrate deep understanding of the law.`, country)
}
