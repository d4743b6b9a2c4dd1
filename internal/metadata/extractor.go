package metadata

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor probes audio files for duration, tags, and embedded cover art
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
	coverCache       map[string][]byte
	coverMux         sync.RWMutex
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
		coverCache:       make(map[string][]byte),
	}
}

// ExtractFromFile builds a Track from an audio file's tags. Missing
// fields fall back to the filename and "Unknown Artist".
func (e *Extractor) ExtractFromFile(filePath string) (models.Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("path", filePath).Error("Failed to open audio file")
		return models.Track{}, err
	}
	defer file.Close()

	duration, err := e.probeDuration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("path", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	track := models.Track{
		Title:     strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
		Artist:    "Unknown Artist",
		Duration:  duration,
		AudioPath: filePath,
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("path", filePath).Warn("Failed to extract metadata, using filename")
		return track, nil
	}

	if title := meta.Title(); title != "" {
		track.Title = title
	}
	if artist := meta.Artist(); artist != "" {
		track.Artist = artist
	}
	if coverID, ok := e.cacheCover(meta); ok {
		track.CoverImagePath = "/covers/" + coverID
	}

	return track, nil
}

// probeDuration returns the duration of an audio file in seconds
func (e *Extractor) probeDuration(filePath string) (int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.mp3Duration(filePath)
	case ".flac":
		return e.flacDuration(filePath)
	case ".wav":
		return e.wavDuration(filePath)
	case ".m4a":
		return e.m4aDuration(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(filePath))
	}
}

// mp3Duration sums frame durations; falls back to a bitrate estimate
// when no frame decodes at all.
func (e *Extractor) mp3Duration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total float64
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration().Seconds()
		frames++
	}
	return int(total), nil
}

// flacDuration reads the STREAMINFO metadata block
func (e *Extractor) flacDuration(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	info := stream.Info
	if info.NSamples > 0 && info.SampleRate > 0 {
		secs := float64(info.NSamples) / float64(info.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// wavDuration approximates from the header and file size; decoding the
// full sample stream would be far more expensive.
func (e *Extractor) wavDuration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pcmBytes := stat.Size() - 44 // canonical header size
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	secs := float64(pcmBytes/frameSize) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

// m4aDuration scans MP4 atoms for the mvhd timescale and duration.
// Manual scan keeps us off a heavyweight MP4 dependency.
func (e *Extractor) m4aDuration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		limit := int64(size) - 8
		for read := int64(0); read < limit; {
			subHead := make([]byte, 8)
			if _, err := io.ReadFull(f, subHead); err != nil {
				return 0, err
			}
			subSize := binary.BigEndian.Uint32(subHead[0:4])
			if string(subHead[4:8]) == "mvhd" {
				return readMvhd(f)
			}
			if subSize < 8 {
				return 0, fmt.Errorf("invalid sub-atom size")
			}
			if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += int64(subSize)
		}
		return 0, fmt.Errorf("mvhd atom not found")
	}
}

func readMvhd(f *os.File) (int, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(f, version); err != nil {
		return 0, err
	}
	var skip int64
	if version[0] == 1 {
		skip = 3 + 8 + 8 // flags + 64-bit creation/modification times
	} else {
		skip = 3 + 4 + 4
	}
	if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}

	buf := make([]byte, 8)
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0, err
	}
	timescale := binary.BigEndian.Uint32(buf[0:4])
	durUnits := binary.BigEndian.Uint32(buf[4:8])
	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	secs := float64(durUnits) / float64(timescale)
	return int(secs + 0.5), nil
}

// estimateFromFileSize is a last-resort estimate when parsing fails
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (int, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((stat.Size() * 8) / int64(bitrate)), nil
}

// cacheCover stores embedded cover art keyed by a content hash
func (e *Extractor) cacheCover(meta tag.Metadata) (string, bool) {
	if meta == nil {
		return "", false
	}
	picture := meta.Picture()
	if picture == nil {
		return "", false
	}

	coverID := fmt.Sprintf("%x", md5.Sum(picture.Data))
	e.coverMux.Lock()
	e.coverCache[coverID] = picture.Data
	e.coverMux.Unlock()
	return coverID, true
}

// GetCover retrieves cached cover art by ID
func (e *Extractor) GetCover(coverID string) ([]byte, bool) {
	e.coverMux.RLock()
	data, exists := e.coverCache[coverID]
	e.coverMux.RUnlock()
	return data, exists
}

// GetCoverMimeType guesses the MIME type from the image bytes
func (e *Extractor) GetCoverMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}
	return "application/octet-stream"
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetContentType returns the MIME type for an audio file
func (e *Extractor) GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
