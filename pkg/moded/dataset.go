package moded

import "strings"

// DataSetValue is one value inside a data set, with an optional unit
// suffix (e.g. "1.234*kWh").
type DataSetValue struct {
	Value string
	Unit  string // empty when no unit is present
}

func parseDataSetValue(s string) DataSetValue {
	if idx := strings.IndexByte(s, '*'); idx >= 0 {
		return DataSetValue{Value: s[:idx], Unit: s[idx+1:]}
	}
	return DataSetValue{Value: s}
}

// DataSet is one OBIS address with its sequence of values:
// "address ( value [*unit] ) ( value [*unit] ) ..." with no whitespace.
type DataSet struct {
	Address string
	Values  []DataSetValue
}

// ParseDataBlock parses every data line of a readout's data block into
// its constituent data sets. Multiple data sets may be concatenated on
// a single physical line.
func ParseDataBlock(data string) []DataSet {
	var items []DataSet
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, parseDataLine(line)...)
	}
	return items
}

func parseDataLine(line string) []DataSet {
	var items []DataSet
	pos := 0
	for pos > -1 && pos < len(line) {
		next, address, values := dataSetAt(line, pos)
		if len(values) > 0 {
			items = append(items, DataSet{Address: address, Values: values})
		}
		pos = next
	}
	return items
}

// dataSetAt parses one address-and-values run starting at fromPos,
// returning the position to resume at (-1 at end of line), the
// address, and the parsed values.
func dataSetAt(line string, fromPos int) (int, string, []DataSetValue) {
	var address string
	var values []DataSetValue

	addressEnd := strings.IndexByte(line[fromPos:], '(')
	if addressEnd < 0 {
		return -1, "", nil
	}
	addressEnd += fromPos
	if addressEnd > fromPos {
		address = line[fromPos:addressEnd]
	}
	pos := addressEnd

	for pos >= 0 {
		closeIdx := strings.IndexByte(line[pos:], ')')
		if closeIdx < 0 {
			return -1, address, values
		}
		closeIdx += pos
		values = append(values, parseDataSetValue(line[pos+1:closeIdx]))
		pos = closeIdx + 1

		if pos == len(line) {
			return -1, address, values
		}
		if line[pos] != '(' {
			break
		}
	}

	if len(values) == 0 {
		return -1, address, values
	}
	return pos, address, values
}
