package work

import (
	"github.com/tth-analysis/tthrun/catalog"
	"github.com/tth-analysis/tthrun/inputs"
)

// TestSample builds a simulated, included sample stored in a single
// directory named after the process.
func TestSample(processName string, category catalog.Category, nofFiles int) *catalog.Sample {
	return &catalog.Sample{
		Name:         "/" + processName + "/MINIAODSIM",
		ProcessName:  processName,
		Category:     category,
		Type:         catalog.TypeMC,
		NofFiles:     nofFiles,
		NofEvents:    1000,
		CrossSection: 10,
		UseIt:        true,
		Locations: []catalog.StoreLocation{
			{Path: "/hdfs/" + processName, Selection: inputs.Wildcard},
		},
	}
}

func TestCatalog(samples ...*catalog.Sample) *catalog.Catalog {
	cat, err := catalog.New(samples...)
	if err != nil {
		panic(err)
	}
	return cat
}
