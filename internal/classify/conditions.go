package classify

// Dictionary holds the condition taxonomy used to classify radiology
// findings: the three ordered tiers, per-condition severity weights, and
// the condition keyword to recommendation mapping. The built-in tables can
// be replaced wholesale from a YAML file (see LoadDictionary).
type Dictionary struct {
	Red    []string `yaml:"red"`
	Orange []string `yaml:"orange"`
	Yellow []string `yaml:"yellow"`

	// Weights overrides the per-condition severity weight. Conditions
	// without an entry fall back to their tier default.
	Weights map[string]float64 `yaml:"weights"`

	Recommendations []RecommendationRule `yaml:"recommendations"`
}

// RecommendationRule maps condition keywords to recommended actions. A rule
// applies when any of its keywords is contained in a matched condition.
type RecommendationRule struct {
	Keywords []string `yaml:"keywords"`
	Actions  []string `yaml:"actions"`
}

// Tier default weights. RED conditions carry the highest per-condition
// weight; specific conditions may override via Weights.
const (
	defaultRedWeight    = 10.0
	defaultOrangeWeight = 6.0
	defaultYellowWeight = 3.0
)

// DefaultDictionary returns the built-in critical conditions database.
func DefaultDictionary() *Dictionary {
	return &Dictionary{
		Red: []string{
			"pulmonary embolism", "aortic dissection", "hemorrhage", "intracranial bleed",
			"tension pneumothorax", "bowel obstruction", "aortic aneurysm rupture",
			"acute stroke", "myocardial infarction", "cardiac tamponade",
			"subdural hematoma", "epidural hematoma", "pneumoperitoneum",
		},
		Orange: []string{
			"pneumonia", "fracture", "mass", "pneumothorax", "appendicitis",
			"kidney stones", "gallbladder inflammation", "abscess", "blood clot",
			"pleural effusion", "consolidation", "nodule",
		},
		Yellow: []string{
			"cyst", "inflammation", "chronic changes", "arthritis",
			"minor fracture", "sinus infection", "muscle strain", "edema",
		},
		Weights: map[string]float64{
			"aortic dissection":    10.0,
			"cardiac tamponade":    10.0,
			"intracranial bleed":   9.5,
			"pulmonary embolism":   9.0,
			"tension pneumothorax": 9.0,
			"hemorrhage":           8.0,
			"mass":                 5.0,
			"pneumonia":            4.0,
			"fracture":             3.0,
		},
		Recommendations: []RecommendationRule{
			{
				Keywords: []string{"pulmonary embolism"},
				Actions: []string{
					"Initiate anticoagulation therapy immediately",
					"Consider thrombolytic therapy if massive PE",
					"Monitor oxygen saturation and blood pressure",
				},
			},
			{
				Keywords: []string{"aortic dissection"},
				Actions: []string{
					"Control blood pressure (SBP <120 mmHg)",
					"Urgent cardiothoracic surgery consultation",
					"Prepare for emergency surgery",
				},
			},
			{
				Keywords: []string{"hemorrhage", "bleed", "hematoma"},
				Actions: []string{
					"Type and crossmatch blood products",
					"Consider reversal agents if on anticoagulation",
					"Neurosurgical consultation if intracranial",
				},
			},
			{
				Keywords: []string{"pneumothorax"},
				Actions: []string{
					"Chest tube placement if tension pneumothorax",
					"Serial chest X-rays",
					"Monitor respiratory status",
				},
			},
			{
				Keywords: []string{"fracture"},
				Actions: []string{
					"Immobilize affected area",
					"Orthopedic consultation if displaced",
					"Pain management protocol",
				},
			},
			{
				Keywords: []string{"mass"},
				Actions: []string{
					"Further characterization with contrast study",
					"Oncology consultation",
					"Tissue sampling consideration",
				},
			},
		},
	}
}

// Weight returns the severity weight for a condition in the given tier.
func (d *Dictionary) Weight(condition string, tierDefault float64) float64 {
	if w, ok := d.Weights[condition]; ok {
		return w
	}
	return tierDefault
}
