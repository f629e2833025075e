// Package navigator classifies evidence container members and drives
// content ingestion: database members are drained into row payloads
// first, then textual members are converted to text one at a time.
package navigator

import (
	"errors"
	"strings"

	"evscan/internal/archive"
	"evscan/internal/dbreader"
	"evscan/internal/logging"
	"evscan/internal/textconv"
)

var textualExtensions = map[string]bool{
	".txt": true, ".csv": true, ".tsv": true, ".json": true,
	".xml": true, ".html": true, ".htm": true, ".md": true,
	".rtf": true, ".pdf": true, ".eml": true, ".msg": true,
	".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".ics": true, ".vcf": true,
	".epub": true, ".odt": true, ".odp": true, ".ods": true,
	".log": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".heic": true,
	".heif": true, ".tiff": true, ".tif": true, ".bmp": true,
	".gif": true, ".webp": true,
}

// Stage marks the progress phase for one textual member.
type Stage string

const (
	StageStart Stage = "start"
	StageDone  Stage = "done"
	StageSkip  Stage = "skip"
)

// MemberEvent is emitted around each textual member's conversion.
type MemberEvent struct {
	Member string
	Index  int
	Total  int
	Stage  Stage
	// Engine names the converter that produced text, set on done events.
	Engine string
}

// ProgressFunc receives member progress notifications. May be nil.
type ProgressFunc func(MemberEvent)

// Plan partitions one archive's members for processing and progress
// accounting. It is computed once per archive before streaming begins.
type Plan struct {
	Members   []archive.Member
	Databases []archive.Member
	Textual   []archive.Member
}

// Navigator coordinates ingestion of one evidence container.
type Navigator struct {
	extractor *archive.Extractor
	databases *dbreader.Reader
	converter textconv.Converter
	logger    logging.Logger
}

func NewNavigator(extractor *archive.Extractor, databases *dbreader.Reader, converter textconv.Converter, logger logging.Logger) *Navigator {
	return &Navigator{
		extractor: extractor,
		databases: databases,
		converter: converter,
		logger:    logger,
	}
}

// PlanProcessing enumerates the container's members and partitions them
// into database and textual/image subsets. Directories and unrecognized
// extensions are excluded.
func (n *Navigator) PlanProcessing() (*Plan, error) {
	members, err := n.extractor.ListMembers()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Members: members}
	for _, m := range members {
		if m.IsDir {
			continue
		}
		switch {
		case dbreader.IsDatabaseMember(m):
			plan.Databases = append(plan.Databases, m)
		case isTextual(m):
			plan.Textual = append(plan.Textual, m)
		}
	}
	return plan, nil
}

// CollectPayloads streams the plan's content as payloads, calling emit
// once per payload. All database members are fully drained before any
// textual member is converted; textual members are then handled one at
// a time in plan order, with a start and a done or skip notification
// around each. Database failures abort the archive; conversion failures
// only skip the member.
func (n *Navigator) CollectPayloads(plan *Plan, emit func(Payload) error, onProgress ProgressFunc) error {
	if len(plan.Databases) > 0 {
		n.logger.Info("processing database members", "container", n.extractor.Path(), "count", len(plan.Databases))
	}
	for _, member := range plan.Databases {
		if err := n.collectDatabaseRows(member, emit); err != nil {
			return err
		}
	}

	if len(plan.Textual) == 0 {
		if len(plan.Databases) == 0 {
			n.logger.Info("no database or textual members identified", "container", n.extractor.Path())
		}
		return nil
	}

	n.logger.Info("processing textual members", "container", n.extractor.Path(), "count", len(plan.Textual))
	for i, member := range plan.Textual {
		notify(onProgress, MemberEvent{Member: member.Name, Index: i, Total: len(plan.Textual), Stage: StageStart})

		payload, ok := n.collectTextPayload(member)
		if !ok {
			notify(onProgress, MemberEvent{Member: member.Name, Index: i, Total: len(plan.Textual), Stage: StageSkip})
			continue
		}
		if err := emit(payload); err != nil {
			return err
		}
		notify(onProgress, MemberEvent{Member: member.Name, Index: i, Total: len(plan.Textual), Stage: StageDone, Engine: payload.Engine})
	}
	return nil
}

func (n *Navigator) collectDatabaseRows(member archive.Member, emit func(Payload) error) error {
	return n.databases.IterRows(member, func(row dbreader.Row) error {
		return emit(Payload{
			SourceFile:   row.SourceFile,
			InternalPath: row.InternalPath,
			Kind:         KindDatabaseRow,
			FileType:     "database",
			Values:       row.Values,
			Columns:      row.Columns,
			Table:        row.Table,
			RowIndex:     row.Index,
			Modified:     member.Modified,
		})
	})
}

// collectTextPayload converts one textual member. A false return means
// the member was skipped: missing conversion capability, a conversion
// failure, or blank output. There is no retry.
func (n *Navigator) collectTextPayload(member archive.Member) (Payload, bool) {
	stream, err := n.extractor.OpenMember(member.Name)
	if err != nil {
		n.logger.Error("opening textual member failed", "member", member.Name, "error", err)
		return Payload{}, false
	}
	defer stream.Close()

	result, err := n.converter.Convert(stream, member.Name)
	if err != nil {
		if errors.Is(err, textconv.ErrMissingCapability) {
			n.logger.Warn("missing conversion capability", "member", member.Name, "error", err)
		} else {
			n.logger.Error("text conversion failed", "member", member.Name, "error", err)
		}
		return Payload{}, false
	}

	if strings.TrimSpace(result.Text) == "" {
		n.logger.Debug("member produced no scannable text", "member", member.Name)
		return Payload{}, false
	}

	return Payload{
		SourceFile:   n.extractor.Path(),
		InternalPath: member.Name,
		Kind:         KindText,
		FileType:     fileTypeFor(member),
		Text:         result.Text,
		Engine:       result.Engine,
		Modified:     member.Modified,
	}, true
}

func isTextual(m archive.Member) bool {
	ext := m.Ext()
	return textualExtensions[ext] || imageExtensions[ext]
}

// fileTypeFor derives the content category from the member's extension,
// independent of which conversion engine handled it.
func fileTypeFor(m archive.Member) string {
	ext := m.Ext()
	switch {
	case imageExtensions[ext]:
		return "image"
	case ext == ".pdf", ext == ".doc", ext == ".docx", ext == ".ppt", ext == ".pptx":
		return "document"
	case ext == ".xls", ext == ".xlsx", ext == ".ods":
		return "spreadsheet"
	case ext == ".eml", ext == ".msg":
		return "email"
	case ext == ".ics":
		return "calendar"
	case ext == ".vcf":
		return "contact"
	case textualExtensions[ext]:
		return "text"
	default:
		return "binary"
	}
}

func notify(fn ProgressFunc, ev MemberEvent) {
	if fn != nil {
		fn(ev)
	}
}
