// Package wave provides the canonical 44-byte RIFF/WAVE header used for linear PCM assets.
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the canonical RIFF/WAVE header in bytes.
const HeaderSize = 44

// Chunk identifiers and fixed header values.
const (
	chunkIDRIFF    = "RIFF"
	formatWAVE     = "WAVE"
	subchunkIDFmt  = "fmt "
	subchunkIDData = "data"

	fmtChunkSize = 16
	// FormatPCM is the audio format code for uncompressed linear PCM.
	FormatPCM = 1

	// riffPreambleSize is the part of the file not counted by the RIFF chunk size.
	riffPreambleSize = 8
)

// Byte offsets of the header fields.
const (
	offsetChunkID       = 0
	offsetChunkSize     = 4
	offsetFormat        = 8
	offsetSubchunk1ID   = 12
	offsetSubchunk1Size = 16
	offsetAudioFormat   = 20
	offsetChannels      = 22
	offsetSampleRate    = 24
	offsetByteRate      = 28
	offsetBlockAlign    = 32
	offsetBitsPerSample = 34
	offsetSubchunk2ID   = 36
	offsetSubchunk2Size = 40
)

const bitsPerByte = 8

// Errors returned by DecodeHeader.
var (
	ErrShortHeader        = errors.New("data is shorter than a WAV header")
	ErrNotRIFF            = errors.New("missing RIFF chunk identifier")
	ErrNotWAVE            = errors.New("missing WAVE format identifier")
	ErrUnsupportedLayout  = errors.New("header is not in canonical 44-byte layout")
	errFmtUnexpectedChunk = "%w: expected %q at offset %d, got %q"
)

// Format describes the sample layout of a PCM stream.
type Format struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// CD is the fixed output format: 44.1 kHz, stereo, 16-bit signed little-endian.
var CD = Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}

// BytesPerSample returns the size of one sample of one channel.
func (f Format) BytesPerSample() uint16 {
	return f.BitsPerSample / bitsPerByte
}

// BlockAlign returns the number of bytes in one frame.
func (f Format) BlockAlign() uint16 {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of payload bytes per second of audio.
func (f Format) ByteRate() uint32 {
	return f.SampleRate * uint32(f.BlockAlign())
}

// Header holds the fields of a decoded canonical header.
type Header struct {
	Format
	ChunkSize   uint32
	AudioFormat uint16
	ByteRate    uint32
	BlockAlign  uint16
	DataSize    uint32
}

// EncodeHeader returns the 44-byte header for a PCM payload of dataSize bytes.
func EncodeHeader(format Format, dataSize uint32) [HeaderSize]byte {
	var header [HeaderSize]byte

	copy(header[offsetChunkID:], chunkIDRIFF)
	binary.LittleEndian.PutUint32(header[offsetChunkSize:], HeaderSize-riffPreambleSize+dataSize)
	copy(header[offsetFormat:], formatWAVE)

	copy(header[offsetSubchunk1ID:], subchunkIDFmt)
	binary.LittleEndian.PutUint32(header[offsetSubchunk1Size:], fmtChunkSize)
	binary.LittleEndian.PutUint16(header[offsetAudioFormat:], FormatPCM)
	binary.LittleEndian.PutUint16(header[offsetChannels:], format.Channels)
	binary.LittleEndian.PutUint32(header[offsetSampleRate:], format.SampleRate)
	binary.LittleEndian.PutUint32(header[offsetByteRate:], format.ByteRate())
	binary.LittleEndian.PutUint16(header[offsetBlockAlign:], format.BlockAlign())
	binary.LittleEndian.PutUint16(header[offsetBitsPerSample:], format.BitsPerSample)

	copy(header[offsetSubchunk2ID:], subchunkIDData)
	binary.LittleEndian.PutUint32(header[offsetSubchunk2Size:], dataSize)

	return header
}

// DecodeHeader parses the canonical header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(data))
	}

	if string(data[offsetChunkID:offsetChunkID+4]) != chunkIDRIFF {
		return Header{}, ErrNotRIFF
	}

	if string(data[offsetFormat:offsetFormat+4]) != formatWAVE {
		return Header{}, ErrNotWAVE
	}

	layoutErr := expectChunkID(data, offsetSubchunk1ID, subchunkIDFmt)
	if layoutErr != nil {
		return Header{}, layoutErr
	}

	layoutErr = expectChunkID(data, offsetSubchunk2ID, subchunkIDData)
	if layoutErr != nil {
		return Header{}, layoutErr
	}

	return Header{
		Format: Format{
			SampleRate:    binary.LittleEndian.Uint32(data[offsetSampleRate:]),
			Channels:      binary.LittleEndian.Uint16(data[offsetChannels:]),
			BitsPerSample: binary.LittleEndian.Uint16(data[offsetBitsPerSample:]),
		},
		ChunkSize:   binary.LittleEndian.Uint32(data[offsetChunkSize:]),
		AudioFormat: binary.LittleEndian.Uint16(data[offsetAudioFormat:]),
		ByteRate:    binary.LittleEndian.Uint32(data[offsetByteRate:]),
		BlockAlign:  binary.LittleEndian.Uint16(data[offsetBlockAlign:]),
		DataSize:    binary.LittleEndian.Uint32(data[offsetSubchunk2Size:]),
	}, nil
}

func expectChunkID(data []byte, offset int, want string) error {
	got := string(data[offset : offset+len(want)])
	if got != want {
		return fmt.Errorf(errFmtUnexpectedChunk, ErrUnsupportedLayout, want, offset, got)
	}

	return nil
}
