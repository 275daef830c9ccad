// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// package emit owns the CSV output sinks a run writes its findings to: one
// result file per checker plus the shared message file consumed by the mail
// builder. Each row is flushed as it is written, so a run that dies mid-way
// leaves behind every finding recorded up to that point.
package emit

import (
	"encoding/csv"
	"os"

	"github.com/odpch/pkgcheck/core"
)

// column order of the link checker's result file
var linkFieldnames = []string{
	"contact_email",
	"contact_name",
	"organization_name",
	"pkg_type",
	"test_url",
	"error_message",
	"test_title",
	"dataset_title",
	"dataset_url",
	"resource_url",
	"template",
}

// column order of the shape checker's result file
var shaclFieldnames = []string{
	"contact_email",
	"contact_name",
	"organization_name",
	"pkg_type",
	"dataset_title",
	"dataset_url",
	"dataset_rdf",
	"dataset_ttl",
	"node",
	"property",
	"value",
	"msg",
	"severity",
	"template",
}

// column order of the message file
var messageFieldnames = []string{
	"contact_email",
	"contact_name",
	"pkg_type",
	"checker_type",
	"msg",
}

// a CSV file that writes its header on creation and flushes after every row
type csvSink struct {
	file   *os.File
	writer *csv.Writer
}

func newCsvSink(path string, fieldnames []string) (*csvSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sink := &csvSink{file: file, writer: csv.NewWriter(file)}
	if err := sink.append(fieldnames); err != nil {
		file.Close()
		return nil, err
	}
	return sink, nil
}

func (s *csvSink) append(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *csvSink) close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// LinkWriter records the link checker's findings
type LinkWriter struct {
	sink *csvSink
}

func NewLinkWriter(path string) (*LinkWriter, error) {
	sink, err := newCsvSink(path, linkFieldnames)
	if err != nil {
		return nil, err
	}
	return &LinkWriter{sink: sink}, nil
}

func (w *LinkWriter) Write(row core.LinkRow) error {
	return w.sink.append([]string{
		row.ContactEmail,
		row.ContactName,
		row.Organization,
		row.PkgType,
		row.TestURL,
		row.ErrorMessage,
		row.TestTitle,
		row.DatasetTitle,
		row.DatasetURL,
		row.ResourceURL,
		row.Template,
	})
}

func (w *LinkWriter) Close() error {
	return w.sink.close()
}

// ShaclWriter records the shape checker's findings
type ShaclWriter struct {
	sink *csvSink
}

func NewShaclWriter(path string) (*ShaclWriter, error) {
	sink, err := newCsvSink(path, shaclFieldnames)
	if err != nil {
		return nil, err
	}
	return &ShaclWriter{sink: sink}, nil
}

func (w *ShaclWriter) Write(row core.ShaclRow) error {
	return w.sink.append([]string{
		row.ContactEmail,
		row.ContactName,
		row.Organization,
		row.PkgType,
		row.DatasetTitle,
		row.DatasetURL,
		row.DatasetRDF,
		row.DatasetTTL,
		row.Node,
		row.Property,
		row.Value,
		row.Msg,
		row.Severity,
		row.Template,
	})
}

func (w *ShaclWriter) Close() error {
	return w.sink.close()
}

// MessageWriter records one message row per finding and contact; the mail
// builder groups them by contact afterwards
type MessageWriter struct {
	sink *csvSink
}

func NewMessageWriter(path string) (*MessageWriter, error) {
	sink, err := newCsvSink(path, messageFieldnames)
	if err != nil {
		return nil, err
	}
	return &MessageWriter{sink: sink}, nil
}

func (w *MessageWriter) Write(row core.MessageRow) error {
	return w.sink.append([]string{
		row.ContactEmail,
		row.ContactName,
		row.PkgType,
		row.CheckerType,
		row.Msg,
	})
}

func (w *MessageWriter) Close() error {
	return w.sink.close()
}
