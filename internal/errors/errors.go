package errors

import (
	"fmt"
	"sort"
	"sync"
)

// Sections of a document that collect field errors.
const (
	SectionHead   = "head"
	SectionFormat = "format"
	SectionBody   = "body"
)

// DocumentLevel marks a FieldError that does not belong to a block.
const DocumentLevel = -1

// FieldError is a single user-correctable validation failure.
type FieldError struct {
	Section string
	Field   string
	// Block is the 0-based block index, or DocumentLevel.
	Block  int
	Key    string
	Params map[string]any
	// Internal errors are shown to users as the generic server error.
	Internal bool
}

// Error implements the error interface
func (fe FieldError) Error() string {
	if fe.Block >= 0 {
		return fmt.Sprintf("%s.blocks[%d].%s: %s", fe.Section, fe.Block, fe.Field, fe.Key)
	}

	return fmt.Sprintf("%s.%s: %s", fe.Section, fe.Field, fe.Key)
}

// Collector accumulates field errors so every problem is reported at once.
type Collector struct {
	errors []FieldError
	mutex  sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{errors: make([]FieldError, 0)}
}

// Add appends an error.
func (c *Collector) Add(err FieldError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, err)
}

// AddBlock records an error for a field of a block.
func (c *Collector) AddBlock(block int, field, key string, params map[string]any) {
	c.Add(FieldError{Section: SectionBody, Field: field, Block: block, Key: key, Params: params})
}

// AddField records a document-level error in section.
func (c *Collector) AddField(section, field, key string, params map[string]any) {
	c.Add(FieldError{Section: section, Field: field, Block: DocumentLevel, Key: key, Params: params})
}

// AddInternal records an unexpected failure for a field.
func (c *Collector) AddInternal(section, field string, block int, cause error) {
	fe := FieldError{Section: section, Field: field, Block: block, Internal: true}
	if cause != nil {
		fe.Key = cause.Error()
	}
	c.Add(fe)
}

// Merge copies all errors from other.
func (c *Collector) Merge(other *Collector) {
	if other == nil || other == c {
		return
	}
	for _, e := range other.Errors() {
		c.Add(e)
	}
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	if c == nil {
		return false
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.errors) > 0
}

// HasInternal reports whether any collected error is internal.
func (c *Collector) HasInternal() bool {
	for _, e := range c.Errors() {
		if e.Internal {
			return true
		}
	}

	return false
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collector) Errors() []FieldError {
	if c == nil {
		return nil
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]FieldError, len(c.errors))
	copy(result, c.errors)

	return result
}

// Section returns the errors belonging to one section.
func (c *Collector) Section(section string) []FieldError {
	var out []FieldError
	for _, e := range c.Errors() {
		if e.Section == section {
			out = append(out, e)
		}
	}

	return out
}

// Blocks returns the sorted unique 0-based indices of blocks with errors.
func (c *Collector) Blocks() []int {
	seen := make(map[int]struct{})
	blocks := make([]int, 0)
	for _, e := range c.Errors() {
		if e.Block < 0 {
			continue
		}
		if _, ok := seen[e.Block]; ok {
			continue
		}
		seen[e.Block] = struct{}{}
		blocks = append(blocks, e.Block)
	}
	sort.Ints(blocks)

	return blocks
}

// Clear removes all errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = c.errors[:0]
}
