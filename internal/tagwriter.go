package internal

import (
	"os"
	"os/user"
	"strings"

	"go.uber.org/zap"
)

// TagWriter copies sidecar fields into an image's tag set. Existing
// descriptive text and existing GPS positions are never overwritten.
type TagWriter struct {
	log    *zap.Logger
	author string
}

// NewTagWriter returns a writer that records author as the Artist. An empty
// author means the current OS user.
func NewTagWriter(log *zap.Logger, author string) *TagWriter {
	if author == "" {
		author = currentUserName()
	}
	return &TagWriter{log: log, author: author}
}

func currentUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		name := u.Username
		// Windows reports DOMAIN\user.
		if i := strings.LastIndexByte(name, '\\'); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}

// Apply runs the descriptive, geo and date writers in that order. observed
// supplies the source file's own creation and last-write times.
func (w *TagWriter) Apply(tags *TagSet, md *MediaMetadata, observedCreation, observedWrite timeProducer) (Instants, error) {
	w.ApplyDescriptive(tags, md)
	w.ApplyGeo(tags, md)
	return w.ApplyDateTime(tags, md, observedCreation, observedWrite)
}

func (w *TagWriter) ApplyDescriptive(tags *TagSet, md *MediaMetadata) {
	setIfEmpty(tags, TagImageDescription, strings.TrimSpace(md.Title))
	setIfEmpty(tags, TagUserComment, strings.TrimSpace(md.Description))
	setIfEmpty(tags, TagArtist, w.author)
}

func setIfEmpty(tags *TagSet, id uint16, v string) {
	if v == "" || tags.String(id) != "" {
		return
	}
	tags.Set(asciiProperty(id, v))
}

// HasValidGeo reports whether a GPS latitude or longitude is already set.
func HasValidGeo(tags *TagSet) bool {
	return !tags.IsZero(TagGPSLatitude) || !tags.IsZero(TagGPSLongitude)
}

// ApplyGeo writes the GPS position tags and reports whether a position was written.
func (w *TagWriter) ApplyGeo(tags *TagSet, md *MediaMetadata) bool {
	if HasValidGeo(tags) {
		w.log.Debug("keeping existing GPS position")
		return false
	}

	tags.Set(TagProperty{ID: TagGPSVersionID, Type: TypeByte, Value: []byte{2, 3, 0, 0}})
	tags.Set(asciiProperty(TagGPSProcessingMethod, "GPS"))

	p, ok := md.Position()
	if !ok {
		w.log.Debug("no geo data in sidecar")
		return false
	}
	for _, prop := range EncodeGeoTags(*p.Latitude, *p.Longitude, p.AltitudeOrZero()).Properties() {
		tags.Set(prop)
	}
	return true
}

// ApplyDateTime writes the original, creation-family and GPS date tags.
func (w *TagWriter) ApplyDateTime(tags *TagSet, md *MediaMetadata, observedCreation, observedWrite timeProducer) (Instants, error) {
	in, err := ResolveInstants(md, observedCreation, observedWrite)
	if err != nil {
		return Instants{}, err
	}

	taken := in.Taken.UTC()
	tags.Set(asciiProperty(TagDateTimeOriginal, FormatDateTime(taken)))
	tags.Set(asciiProperty(TagSubSecTimeOriginal, formatSubSec(taken)))
	tags.Set(asciiProperty(TagPreviewDateTime, FormatDateTime(taken)))
	tags.Set(asciiProperty(TagThumbnailDateTime, FormatDateTime(taken)))

	creation := in.Creation.UTC()
	tags.Set(asciiProperty(TagDateTime, FormatDateTime(creation)))
	tags.Set(asciiProperty(TagDateTimeDigitized, FormatDateTime(creation)))
	tags.Set(asciiProperty(TagSubSecTime, formatSubSec(creation)))
	tags.Set(asciiProperty(TagSubSecTimeDigitized, formatSubSec(creation)))

	tags.Set(asciiProperty(TagGPSDateStamp, FormatDate(taken)))
	tags.Set(TagProperty{
		ID:    TagGPSTimeStamp,
		Type:  TypeRational,
		Value: GPSTimestamp(taken.Hour(), taken.Minute(), taken.Second(), taken.Nanosecond()/1e6),
	})
	return in, nil
}
