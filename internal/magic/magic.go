package magic

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type Magic uint32

const (
	MagicClass Magic = 0xcafebabe // big-endian
	MagicZip   Magic = 0x04034b50 // little-endian "PK\x03\x04"
	MagicZipE  Magic = 0x06054b50 // empty archive
)

func readMagic(filePath string) ([4]byte, error) {
	var magic [4]byte

	f, err := os.Open(filePath)
	if err != nil {
		return magic, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()

	if _, err = io.ReadFull(f, magic[:]); err != nil {
		return magic, fmt.Errorf("failed to read magic: %w", err)
	}

	return magic, nil
}

// IsZip reports whether filePath is a zip (or jar) archive
func IsZip(filePath string) (bool, error) {
	magic, err := readMagic(filePath)
	if err != nil {
		return false, err
	}

	switch Magic(binary.LittleEndian.Uint32(magic[:])) {
	case MagicZip, MagicZipE:
		return true, nil
	default:
		return false, nil
	}
}

// IsClass reports whether filePath is a compiled JVM class file
func IsClass(filePath string) (bool, error) {
	magic, err := readMagic(filePath)
	if err != nil {
		return false, err
	}

	return IsClassData(magic[:]), nil
}

// IsClassData reports whether data starts with the JVM class file magic
func IsClassData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return Magic(binary.BigEndian.Uint32(data)) == MagicClass
}
