package retrieval

import "context"

// starterDocs are the initial clinical-knowledge snippets indexed on first
// start so the assistant can answer trial-matching questions out of the box.
var starterDocs = []Document{
	{
		ID:      "NCT001",
		Content: "NCT001: Phase 3 randomized trial of a GLP-1 receptor agonist for adults with type 2 diabetes and BMI over 30. Recruiting at 12 sites. Exclusion: history of pancreatitis.",
		Metadata: map[string]string{
			"type": "trial",
		},
	},
	{
		ID:      "NCT002",
		Content: "NCT002: Metformin extended-release versus standard care in prediabetic adults aged 40-70. Open label, 24-month follow-up. Primary endpoint: progression to type 2 diabetes.",
		Metadata: map[string]string{
			"type": "trial",
		},
	},
	{
		ID:      "NCT003",
		Content: "NCT003: CAR-T cell therapy for relapsed or refractory B-cell lymphoma in patients who failed two prior lines of therapy. Phase 2, single arm.",
		Metadata: map[string]string{
			"type": "trial",
		},
	},
	{
		ID:      "MED001",
		Content: "Paracetamol (acetaminophen) is an analgesic and antipyretic. Usual adult dose 500mg-1000mg every 4-6 hours, maximum 4g per day. Overdose risks acute liver failure.",
		Metadata: map[string]string{
			"type": "knowledge",
		},
	},
	{
		ID:      "MED002",
		Content: "Metformin is a first-line oral antihyperglycemic for type 2 diabetes. Common adverse effects are gastrointestinal. Contraindicated in severe renal impairment due to lactic acidosis risk.",
		Metadata: map[string]string{
			"type": "knowledge",
		},
	},
}

// Seed indexes the starter documents if the knowledge base is empty.
// Safe to call on every start.
func (s *Store) Seed(ctx context.Context) error {
	count, err := s.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	s.logger.Info("seeding knowledge base", "documents", len(starterDocs))
	return s.Add(ctx, starterDocs)
}
