package channel

// Permission is a bitmask over the permission enumeration of spec.md §3
// (ACL row). The HF-domain permissions (SetGridLocator, ModifyBandplan,
// ConfigurePropagation) are additions this server makes to the original
// Mumble ACL.Permission enum (ACL.h), which the spec's ACL row carries
// forward by name.
type Permission uint32

const (
	PermNone Permission = 0

	PermEnter           Permission = 1 << 0
	PermTraverse        Permission = 1 << 1
	PermSpeak           Permission = 1 << 2
	PermWhisper         Permission = 1 << 3
	PermTextMessage     Permission = 1 << 4
	PermMakeChannel     Permission = 1 << 5
	PermLinkChannel     Permission = 1 << 6
	PermMuteDeafen      Permission = 1 << 7
	PermMove            Permission = 1 << 8
	PermListen          Permission = 1 << 9
	PermMakeTempChannel Permission = 1 << 10

	PermSetGridLocator      Permission = 1 << 20
	PermModifyBandplan      Permission = 1 << 21
	PermConfigurePropagation Permission = 1 << 22

	PermAll Permission = 0xFFFFFFFF
)

// Has reports whether p contains every bit of other.
func (p Permission) Has(other Permission) bool {
	return p&other == other
}
