package buildcfg

// Attributes is the FAT directory-entry attribute bitmask, §3.
type Attributes uint8

const (
	AttrReadOnly   Attributes = 0x01
	AttrHidden     Attributes = 0x02
	AttrSystem     Attributes = 0x04
	AttrVolumeID   Attributes = 0x08
	AttrDirectory  Attributes = 0x10
	AttrArchive    Attributes = 0x20
	AttrLongName   Attributes = 0x0F // ReadOnly|Hidden|System|VolumeID combined: LFN marker

	// AttrUserMask is the set of bits a manifest author may set explicitly.
	// VolumeID and Directory are always derived, never user-set.
	AttrUserMask = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive
)

// ParseAttributeLetters converts the manifest's attribute-letter set
// ("a", "s", "h", "r") into an Attributes bitmask, per §4.1.
func ParseAttributeLetters(letters string) (Attributes, error) {
	var attrs Attributes
	for _, ch := range letters {
		switch ch {
		case 'a':
			attrs |= AttrArchive
		case 's':
			attrs |= AttrSystem
		case 'h':
			attrs |= AttrHidden
		case 'r':
			attrs |= AttrReadOnly
		default:
			return 0, ErrUnknownAttribute.WithMessage(string(ch))
		}
	}
	return attrs, nil
}
