package logger

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// FilterHook decides which entries reach the writers, by "module" field and by
// level. An empty or "*" filter allows everything.
type FilterHook struct {
	allowedModules  map[string]bool
	allowedLogTypes map[string]bool

	hasModuleFilter  bool
	hasLogTypeFilter bool

	mu sync.RWMutex
}

// NewFilterHook creates a filter from cfg.
func NewFilterHook(cfg *LogConfig) *FilterHook {
	h := &FilterHook{}
	h.UpdateFilters(cfg)
	return h
}

// UpdateFilters replaces the filters at runtime.
func (h *FilterHook) UpdateFilters(cfg *LogConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.allowedModules = parseFilter(cfg.FilterModules)
	h.hasModuleFilter = !h.allowedModules["*"]

	h.allowedLogTypes = parseFilter(cfg.FilterLogTypes)
	h.hasLogTypeFilter = !h.allowedLogTypes["*"]
}

// parseFilter turns "a,b,c" into a lowercase set. Empty or "*" yields {"*"}.
func parseFilter(filterStr string) map[string]bool {
	result := make(map[string]bool)
	if strings.TrimSpace(filterStr) == "" || strings.TrimSpace(filterStr) == "*" {
		result["*"] = true
		return result
	}
	for _, v := range strings.Split(filterStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result[strings.ToLower(v)] = true
		}
	}
	if len(result) == 0 {
		result["*"] = true
	}
	return result
}

// Allow reports whether entry passes every configured filter. Entries without
// a module field always pass the module filter. Errors and above always pass.
func (h *FilterHook) Allow(entry *logrus.Entry) bool {
	if entry.Level <= logrus.ErrorLevel {
		return true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.hasLogTypeFilter && !h.allowedLogTypes[strings.ToLower(entry.Level.String())] {
		return false
	}
	if h.hasModuleFilter {
		if module, ok := entry.Data["module"].(string); ok && module != "" {
			if !h.allowedModules[strings.ToLower(module)] {
				return false
			}
		}
	}
	return true
}
