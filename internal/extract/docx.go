package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// readDocx concatenates the paragraph texts of a DOCX file with newlines.
func readDocx(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != docxBodyPart {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s in %s: %w", docxBodyPart, path, err)
		}
		return parseDocumentXML(content)
	}
	return "", errors.New("docx has no " + docxBodyPart)
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseDocumentXML extracts paragraph text in document order. Every w:t below a
// paragraph counts, including runs wrapped in hyperlinks, insertions, smart tags
// and content controls. Run-level w:tab becomes a tab, w:br and w:cr a newline.
func parseDocumentXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		paraDepth  int // stack depth of the open paragraph, 0 outside one
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, t.Name.Local)

			if paraDepth == 0 {
				if t.Name.Local == "p" {
					paraDepth = len(stack)
					current.Reset()
				}
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				if parent == "r" {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if parent == "r" {
					current.WriteByte('\n')
				}
			}

		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if paraDepth != 0 && paraDepth == len(stack) {
				paragraphs = append(paragraphs, current.String())
				paraDepth = 0
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
