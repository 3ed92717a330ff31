package entities

import "fmt"

// POSIX mode bits, independent of the host platform
const (
	ModeTypeMask  uint32 = 0o170000
	ModeSocket    uint32 = 0o140000
	ModeSymlink   uint32 = 0o120000
	ModeRegular   uint32 = 0o100000
	ModeDirectory uint32 = 0o040000
	ModeSetuid    uint32 = 0o4000
	ModeSetgid    uint32 = 0o2000
	ModeSticky    uint32 = 0o1000
	ModeOtherW    uint32 = 0o0002
)

// FsObjectRecord is the link-status of one filesystem object
type FsObjectRecord struct {
	Path string // normalized path
	Mode uint32 // raw st_mode including file type bits
	UID  uint32
	GID  uint32
}

// IsDir reports whether the object is a directory
func (r FsObjectRecord) IsDir() bool { return r.Mode&ModeTypeMask == ModeDirectory }

// IsRegular reports whether the object is a regular file
func (r FsObjectRecord) IsRegular() bool { return r.Mode&ModeTypeMask == ModeRegular }

// IsSymlink reports whether the object is a symbolic link
func (r FsObjectRecord) IsSymlink() bool { return r.Mode&ModeTypeMask == ModeSymlink }

// ReportLine renders the full-report line for the object
func (r FsObjectRecord) ReportLine() string {
	return fmt.Sprintf("File: %s mode: %O uid: %d gid: %d", r.Path, r.Mode, r.UID, r.GID)
}
