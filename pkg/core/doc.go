// Package core defines the shared language of the leapmix system.
//
// This package contains:
//   - Data model definitions (DataModel, KPI, SpendVariable, ControlVariable)
//   - Field catalog entries (Field, DataType)
//   - Generated tabular data (MockDataset, ColumnType, ColumnRole)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
