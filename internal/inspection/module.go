package inspection

import (
	"fmt"
	"strings"
)

// ModuleKey identifies one form section of an inspection
type ModuleKey string

const (
	ModuleVehicleIdentity    ModuleKey = "vehicleIdentity"
	ModuleRCDetails          ModuleKey = "rcDetails"
	ModuleExterior           ModuleKey = "exterior"
	ModuleElectricalInterior ModuleKey = "electricalInterior"
	ModuleTestDrive          ModuleKey = "testDrive"
	ModuleEngine             ModuleKey = "engine"
	ModuleFunctions          ModuleKey = "functions"
	ModuleFrames             ModuleKey = "frames"
	ModuleRefurbishmentCost  ModuleKey = "refurbishmentCost"
	ModuleDefects            ModuleKey = "defects"
)

// AllModules lists every module in the order the operator walks through them
var AllModules = []ModuleKey{
	ModuleVehicleIdentity,
	ModuleRCDetails,
	ModuleExterior,
	ModuleElectricalInterior,
	ModuleTestDrive,
	ModuleEngine,
	ModuleFunctions,
	ModuleFrames,
	ModuleRefurbishmentCost,
	ModuleDefects,
}

// ChecklistModules are the modules that gate finalizing an inspection.
// Vehicle identity is the session prerequisite and is tracked separately.
var ChecklistModules = []ModuleKey{
	ModuleRCDetails,
	ModuleExterior,
	ModuleElectricalInterior,
	ModuleTestDrive,
	ModuleEngine,
	ModuleFunctions,
	ModuleFrames,
	ModuleRefurbishmentCost,
	ModuleDefects,
}

// ParseModuleKey accepts a module key case-insensitively
func ParseModuleKey(s string) (ModuleKey, error) {
	for _, m := range AllModules {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown module %q", s)
}

// Valid reports whether m is a known module
func (m ModuleKey) Valid() bool {
	_, err := ParseModuleKey(string(m))
	return err == nil
}

func (m ModuleKey) String() string {
	return string(m)
}
