package domain

// StageKind identifies a pipeline stage
type StageKind string

const (
	StageNormalize StageKind = "normalize"
	StageAnnotate  StageKind = "annotate"
	StageManifest  StageKind = "manifest"
	StagePredict   StageKind = "predict"
	StageDownload  StageKind = "download"
)

// RunStatus represents the outcome of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Kingdom is the taxonomic kingdom passed to the annotation tool
type Kingdom string

const (
	KingdomBacteria     Kingdom = "Bacteria"
	KingdomArchaea      Kingdom = "Archaea"
	KingdomViruses      Kingdom = "Viruses"
	KingdomMitochondria Kingdom = "Mitochondria"
	KingdomPlasmids     Kingdom = "Plasmids"
)

// Kingdoms lists all valid kingdoms
var Kingdoms = []Kingdom{KingdomBacteria, KingdomArchaea, KingdomViruses, KingdomMitochondria, KingdomPlasmids}

// Valid reports whether k is a recognized kingdom
func (k Kingdom) Valid() bool {
	for _, known := range Kingdoms {
		if k == known {
			return true
		}
	}
	return false
}

// KnownSpecies are the species the AMR tool supports for point-mutation analysis.
// Other species strings are accepted but produce a warning.
var KnownSpecies = []string{
	"Campylobacter",
	"Escherichia",
	"Klebsiella_pneumoniae",
	"Salmonella",
	"Staphylococcus_aureus",
	"Vibrio_cholerae",
}

// IsKnownSpecies reports whether s is in the known-species list
func IsKnownSpecies(s string) bool {
	for _, known := range KnownSpecies {
		if s == known {
			return true
		}
	}
	return false
}
