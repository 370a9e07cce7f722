package devseed

import (
	"fmt"

	"github.com/lettermill/import-api/internal/domain/model"
)

// demoImports builds the seed batches. Record counts stay under any sane
// inline threshold so seeding completes synchronously.
func demoImports() []*model.CreateImportRequest {
	mapping := model.FieldMapping{
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
	}

	newsletter := make([]model.Record, 0, 8)
	for i := 1; i <= 8; i++ {
		newsletter = append(newsletter, model.Record{
			"email":      fmt.Sprintf("reader%d@example.com", i),
			"first_name": fmt.Sprintf("Reader%d", i),
			"last_name":  "Demo",
		})
	}

	return []*model.CreateImportRequest{
		{
			ListName:     "demo-newsletter",
			Records:      newsletter,
			FieldMapping: mapping,
		},
		{
			ListName: "demo-onboarding",
			Records: []model.Record{
				{"email": "welcome@example.com", "first_name": "Welcome"},
				{"email": "trial@example.com", "first_name": "Trial"},
				// Missing email exercises the skip path so the seeded job
				// shows a non-zero skipped counter.
				{"first_name": "NoAddress"},
			},
			FieldMapping: mapping,
		},
	}
}
