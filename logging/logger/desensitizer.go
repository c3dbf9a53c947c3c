package logger

import (
	"strings"

	"github.com/ncobase/docmapper/logging/logger/config"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// maxDepth bounds recursion into nested filter documents.
const maxDepth = 10

// Desensitizer masks values stored under sensitive keys. It walks the shapes
// that show up in logged filters and documents: bson.D, bson.M, plain maps
// and arrays.
type Desensitizer struct {
	config *config.Desensitization
	mask   string
}

// NewDesensitizer creates a new desensitizer instance
func NewDesensitizer(cfg *config.Desensitization) *Desensitizer {
	if cfg == nil {
		cfg = config.DefaultDesensitization()
	}
	maskChar, maskLen := cfg.MaskChar, cfg.MaskLength
	if maskChar == "" {
		maskChar = "*"
	}
	if maskLen <= 0 {
		maskLen = 6
	}
	return &Desensitizer{config: cfg, mask: strings.Repeat(maskChar, maskLen)}
}

// DesensitizeFields processes log fields and masks sensitive data
func (d *Desensitizer) DesensitizeFields(fields logrus.Fields) logrus.Fields {
	if !d.config.Enabled {
		return fields
	}

	result := make(logrus.Fields, len(fields))
	for key, value := range fields {
		result[key] = d.value(key, value, 0)
	}
	return result
}

// Desensitize returns a masked copy of v.
func (d *Desensitizer) Desensitize(v any) any {
	if !d.config.Enabled {
		return v
	}
	return d.value("", v, 0)
}

func (d *Desensitizer) value(key string, v any, depth int) any {
	if v == nil || depth > maxDepth {
		return v
	}
	if d.isSensitiveField(key) {
		return d.mask
	}

	switch t := v.(type) {
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: d.value(e.Key, e.Value, depth+1)}
		}
		return out
	case bson.M:
		out := make(bson.M, len(t))
		for k, val := range t {
			out[k] = d.value(k, val, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = d.value(k, val, depth+1)
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, val := range t {
			out[i] = d.value("", val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = d.value("", val, depth+1)
		}
		return out
	}
	return v
}

// isSensitiveField checks if field name contains sensitive keywords
func (d *Desensitizer) isSensitiveField(fieldName string) bool {
	if fieldName == "" {
		return false
	}

	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range d.config.SensitiveFields {
		sensitive = strings.ToLower(sensitive)
		if d.config.ExactFieldMatch {
			if lowerName == sensitive {
				return true
			}
		} else if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// desensitizeHook applies a Desensitizer to every entry.
type desensitizeHook struct {
	d *Desensitizer
}

// Levels returns all log levels
func (h *desensitizeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire masks the entry fields in place
func (h *desensitizeHook) Fire(entry *logrus.Entry) error {
	entry.Data = h.d.DesensitizeFields(entry.Data)
	return nil
}
