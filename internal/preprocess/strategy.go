package preprocess

// Class groups strategies for retry ordering: orientation fixes run first,
// then enhancement, then denoising.
type Class int

const (
	ClassRotation Class = iota
	ClassEnhancement
	ClassDenoise
)

func (c Class) String() string {
	switch c {
	case ClassRotation:
		return "rotation"
	case ClassEnhancement:
		return "enhancement"
	case ClassDenoise:
		return "denoise"
	default:
		return "unknown"
	}
}

// Strategy is a named image transform from the fixed catalog.
type Strategy int

const (
	StrategyAutoOrient Strategy = iota
	StrategyDeskew
	StrategySharpen
	StrategyContrast
	StrategyUpscaleBlur
	StrategyBlur
)

func (s Strategy) String() string {
	switch s {
	case StrategyAutoOrient:
		return "auto-orient"
	case StrategyDeskew:
		return "deskew"
	case StrategySharpen:
		return "sharpen"
	case StrategyContrast:
		return "contrast"
	case StrategyUpscaleBlur:
		return "upscale-blur"
	case StrategyBlur:
		return "blur"
	default:
		return "unknown"
	}
}

// Class returns the priority class a strategy belongs to.
func (s Strategy) Class() Class {
	switch s {
	case StrategyAutoOrient, StrategyDeskew:
		return ClassRotation
	case StrategySharpen, StrategyContrast:
		return ClassEnhancement
	default:
		return ClassDenoise
	}
}

// Catalog returns all strategies in declaration order. The orchestrator
// relies on this order within each class.
func Catalog() []Strategy {
	return []Strategy{
		StrategyAutoOrient,
		StrategyDeskew,
		StrategySharpen,
		StrategyContrast,
		StrategyUpscaleBlur,
		StrategyBlur,
	}
}

// CatalogByClass returns the catalog entries of one class, in catalog order.
func CatalogByClass(c Class) []Strategy {
	var out []Strategy
	for _, s := range Catalog() {
		if s.Class() == c {
			out = append(out, s)
		}
	}
	return out
}

// ManualRotationAngles are the fixed fallback rotations tried after the
// rotation strategies fail.
func ManualRotationAngles() []int { return []int{0, 90, 180, 270} }
