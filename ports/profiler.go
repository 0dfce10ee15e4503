package ports

import (
	"labreport/domain/dataset"
)

// ProfilerPort summarises tables for sheet and column detection
type ProfilerPort interface {
	ProfileTable(table *dataset.Table, samples int) dataset.TableProfile
	DescribeTable(table *dataset.Table, samples int) dataset.TableInfo
}
