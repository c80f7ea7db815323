// Package obis maps OBIS codes (IEC 62056-61) to the canonical field
// names this pipeline normalizes every vendor's notification body to.
package obis

import "fmt"

// Canonical field names produced by Record normalization, grounded on
// the original Python project's obis_map module.
const (
	FieldListVersionID        = "list_ver_id"
	FieldMeterID               = "meter_id"
	FieldMeterType             = "meter_type"
	FieldMeterTypeID           = "meter_type_id"
	FieldMeterManufacturer     = "meter_manufacturer"
	FieldMeterManufacturerID   = "meter_manufacturer_id"
	FieldMeterDateTime         = "meter_datetime"
	FieldActivePowerImport     = "active_power_import"
	FieldActivePowerImportL1   = "active_power_import_l1"
	FieldActivePowerImportL2   = "active_power_import_l2"
	FieldActivePowerImportL3   = "active_power_import_l3"
	FieldActivePowerExport     = "active_power_export"
	FieldActivePowerExportL1   = "active_power_export_l1"
	FieldActivePowerExportL2   = "active_power_export_l2"
	FieldActivePowerExportL3   = "active_power_export_l3"
	FieldReactivePowerImport   = "reactive_power_import"
	FieldReactivePowerImportL1 = "reactive_power_import_l1"
	FieldReactivePowerImportL2 = "reactive_power_import_l2"
	FieldReactivePowerImportL3 = "reactive_power_import_l3"
	FieldReactivePowerExport   = "reactive_power_export"
	FieldReactivePowerExportL1 = "reactive_power_export_l1"
	FieldReactivePowerExportL2 = "reactive_power_export_l2"
	FieldReactivePowerExportL3 = "reactive_power_export_l3"
	FieldCurrentL1             = "current_l1"
	FieldCurrentL2             = "current_l2"
	FieldCurrentL3             = "current_l3"
	FieldVoltageL1             = "voltage_l1"
	FieldVoltageL2             = "voltage_l2"
	FieldVoltageL3             = "voltage_l3"
	FieldActiveEnergyImportTotal   = "active_energy_import_total"
	FieldActiveEnergyExportTotal   = "active_energy_export_total"
	FieldReactiveEnergyImportTotal = "reactive_energy_import_total"
	FieldReactiveEnergyExportTotal = "reactive_energy_export_total"
	FieldPowerFactor           = "power_factor"
	FieldPowerFactorL1         = "power_factor_l1"
	FieldPowerFactorL2         = "power_factor_l2"
	FieldPowerFactorL3         = "power_factor_l3"
)

// nameByCDE maps a reduced "C.D.E" OBIS string to its canonical field
// name, grounded on name_obis_map in the original project.
var nameByCDE = map[string]string{
	"1.8.0":  FieldActiveEnergyImportTotal,
	"2.8.0":  FieldActiveEnergyExportTotal,
	"3.8.0":  FieldReactiveEnergyImportTotal,
	"4.8.0":  FieldReactiveEnergyExportTotal,
	"1.7.0":  FieldActivePowerImport,
	"21.7.0": FieldActivePowerImportL1,
	"41.7.0": FieldActivePowerImportL2,
	"61.7.0": FieldActivePowerImportL3,
	"2.7.0":  FieldActivePowerExport,
	"22.7.0": FieldActivePowerExportL1,
	"42.7.0": FieldActivePowerExportL2,
	"62.7.0": FieldActivePowerExportL3,
	"3.7.0":  FieldReactivePowerImport,
	"23.7.0": FieldReactivePowerImportL1,
	"43.7.0": FieldReactivePowerImportL2,
	"63.7.0": FieldReactivePowerImportL3,
	"4.7.0":  FieldReactivePowerExport,
	"24.7.0": FieldReactivePowerExportL1,
	"44.7.0": FieldReactivePowerExportL2,
	"64.7.0": FieldReactivePowerExportL3,
	"31.7.0": FieldCurrentL1,
	"51.7.0": FieldCurrentL2,
	"71.7.0": FieldCurrentL3,
	"32.7.0": FieldVoltageL1,
	"52.7.0": FieldVoltageL2,
	"72.7.0": FieldVoltageL3,
	"13.7.0": FieldPowerFactor,
	"33.7.0": FieldPowerFactorL1,
	"53.7.0": FieldPowerFactorL2,
	"73.7.0": FieldPowerFactorL3,
	"96.1.1": FieldMeterID,
	"96.1.7": FieldMeterType,
	"96.1.0": FieldMeterManufacturer,
	"1.0.0":  FieldMeterDateTime,
	"0.2.0":  FieldListVersionID,
}

// Code is a full six-component OBIS code (A.B.C.D.E.F).
type Code [6]byte

// String renders the code in dotted-decimal form.
func (c Code) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", c[0], c[1], c[2], c[3], c[4], c[5])
}

// ReducedString renders only the C.D.E components, which is how this
// pipeline looks up canonical field names: the A (media) and B
// (channel) components are constant for a single-channel meter, and F
// (billing period) is not meaningful for instantaneous readings.
func (c Code) ReducedString() string {
	return fmt.Sprintf("%d.%d.%d", c[2], c[3], c[4])
}

// FieldName returns the canonical field name for code, or false if
// the code has no known mapping.
func FieldName(c Code) (string, bool) {
	name, ok := nameByCDE[c.ReducedString()]
	return name, ok
}

// FieldNameForCDE looks up a canonical field name directly from a
// "C.D.E" string, for grammars (such as P1 Mode-D) that carry OBIS
// addresses as text rather than decoded octet strings.
func FieldNameForCDE(cde string) (string, bool) {
	name, ok := nameByCDE[cde]
	return name, ok
}
