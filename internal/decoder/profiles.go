package decoder

// Profile is a named parameter set for one decode attempt.
//
// Args are passed verbatim to subprocess decoders. TryHarder, QROnly and
// Multi are hints for in-process backends that take structured options
// instead of flags.
type Profile struct {
	Name      string
	Args      []string
	TryHarder bool
	QROnly    bool
	Multi     bool
}

// DefaultProfiles returns the fixed attempt order: a plain scan first, then a
// cache-disabled scan, an increased y-density scan, and finally a QR-only
// high-density scan. Attempts stop at the first profile with output.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "default", Multi: true},
		{Name: "no-cache", Args: []string{"--nocache"}, Multi: true},
		{Name: "dense-y", Args: []string{"-Sy-density=2"}, TryHarder: true, Multi: true},
		{
			Name:      "qr-dense",
			Args:      []string{"-Sdisable", "-Sqrcode.enable", "-Sx-density=4", "-Sy-density=4"},
			TryHarder: true,
			QROnly:    true,
		},
	}
}

// SingleProfile returns a one-entry profile list for backends that make
// exactly one attempt per image, such as the remote API decoder.
func SingleProfile() []Profile {
	return []Profile{{Name: "default", Multi: true}}
}
