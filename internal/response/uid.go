package response

import (
	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

const (
	codeAppendUID = "APPENDUID"
	codeCopyUID   = "COPYUID"
)

// AppendUID is the UIDPLUS result of an APPEND. UIDs contains more than one
// UID for MULTIAPPEND.
type AppendUID struct {
	UIDValidity uint32
	UIDs        seqset.Set
}

// CopyUID is the UIDPLUS result of COPY and MOVE, SourceUIDs[i] was copied
// to DestUIDs[i].
type CopyUID struct {
	UIDValidity uint32
	SourceUIDs  seqset.Set
	DestUIDs    seqset.Set
}

// DecodeAppendUID reads the APPENDUID response code of the completion
// line. The completion must be OK.
func DecodeAppendUID(lines []*wire.Response) (*AppendUID, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	l := set.last()
	code, ok := l.ReadBracketCode()
	if !ok || code != codeAppendUID {
		return nil, codecerr.Invalid("no %s response code found in %q", codeAppendUID, l)
	}

	validity, ok := l.ReadNumber32()
	if !ok {
		return nil, codecerr.Invalid("%s: missing uidvalidity in %q", codeAppendUID, l)
	}

	uids, err := readUIDSet(l)
	if err != nil {
		return nil, codecerr.Invalid("%s: %w", codeAppendUID, err)
	}

	return &AppendUID{UIDValidity: validity, UIDs: uids}, nil
}

// DecodeCopyUID searches the lines from the end for an OK response with a
// COPYUID response code. For MOVE the code is sent in an untagged OK
// before the EXPUNGE responses.
func DecodeCopyUID(lines []*wire.Response) (*CopyUID, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	for i, l := range set.Backward() {
		if !l.IsOK() {
			continue
		}

		code, ok := l.ReadBracketCode()
		if !ok || code != codeCopyUID {
			continue
		}

		validity, ok := l.ReadNumber32()
		if !ok {
			return nil, codecerr.Invalid("%s: missing uidvalidity in %q", codeCopyUID, l)
		}

		src, err := readUIDSet(l)
		if err != nil {
			return nil, codecerr.Invalid("%s: source uids: %w", codeCopyUID, err)
		}

		dst, err := readUIDSet(l)
		if err != nil {
			return nil, codecerr.Invalid("%s: destination uids: %w", codeCopyUID, err)
		}

		set.claim(i)

		return &CopyUID{UIDValidity: validity, SourceUIDs: src, DestUIDs: dst}, nil
	}

	return nil, codecerr.Invalid("no %s response code found", codeCopyUID)
}

func readUIDSet(l *wire.Response) (seqset.Set, error) {
	return seqset.Parse(l.ReadSequenceSetText())
}
