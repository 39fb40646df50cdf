package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

const promptTemplate = `The following text is extracted from a single power interruption notice image via OCR.
It may contain misreads, weird formatting, and grammar errors.

Correct errors and map municipality + barangay names strictly using the provided location reference JSON.

Return a JSON with this structure:
{
  "notices": [
    {
      "dates": ["August 27, 2025"],
      "times": ["8:30AM - 5:00PM"],
      "duration_hours": 8.5,
      "locations": [
        {
          "municipality": "POLANCO",
          "barangays": ["Labrador", "Poblacion North", "Poblacion South", "Guinles"]
        }
      ],
      "reason": "Cleaned reason text here"
    }
  ]
}

Rules:
- There may be multiple schedules inside this ONE image. Extract ALL of them.
- Each schedule must be a separate object inside the "notices" array.
- Always use the provided reference JSON for municipalities and barangays.
- If OCR has a close but invalid name, replace it with the nearest valid one from the reference.
- Return valid JSON only.

Location reference:
%s

Text:
%s
`

// BuildPrompt renders the extraction prompt with the reference tree
// inlined so the model corrects location names against it.
func BuildPrompt(ocrText string, ref domain.ReferenceTree) (string, error) {
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("marshal reference tree: %w", err)
	}
	return fmt.Sprintf(promptTemplate, refJSON, ocrText), nil
}
