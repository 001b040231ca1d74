package domain

// ModuleRecord is the persisted change-detection state of one module
// version: the files its definition depends on and the sum of their
// modification times at export.
type ModuleRecord struct {
	Deps  []string `json:"deps"`
	Mtime int64    `json:"mtime"`
}

// CacheRecord is the persisted state of a build directory, written once
// per export. It lets later invocations resolve targets and detect
// changed modules without a full re-export.
type CacheRecord struct {
	Targets []string                           `json:"targets"`
	Modules map[string]map[string]ModuleRecord `json:"modules"`
	Main    string                             `json:"main"`
	Options map[string]string                  `json:"options"`
}

// NewCacheRecord creates an empty record.
func NewCacheRecord() *CacheRecord {
	return &CacheRecord{
		Modules: make(map[string]map[string]ModuleRecord),
		Options: make(map[string]string),
	}
}

// PutModule records the change-detection state of a module version.
func (c *CacheRecord) PutModule(name, version string, rec ModuleRecord) {
	versions, ok := c.Modules[name]
	if !ok {
		versions = make(map[string]ModuleRecord)
		c.Modules[name] = versions
	}
	versions[version] = rec
}

// Module returns the recorded state of a module version.
func (c *CacheRecord) Module(name, version string) (ModuleRecord, bool) {
	versions, ok := c.Modules[name]
	if !ok {
		return ModuleRecord{}, false
	}
	rec, ok := versions[version]
	return rec, ok
}
