package ports

// ArchiveReader inspects archives produced by the external archiver.
// Production code uses the zipinspect adapter; tests use MockArchiveReader.
type ArchiveReader interface {
	// List returns a map of entry names (as stored in the archive) to their info.
	// Directory entries are skipped.
	List(zipPath string) (map[string]FileInfo, error)
}

// FileInfo contains metadata about a file in an archive.
type FileInfo struct {
	Size  int64
	CRC32 uint32
}
