package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
)

const testCatalog = `
term: 4262
courses:
  - id: CS 101
    name: Intro to Programming
    sections:
      - number: 1
        type: LEC
        instructor: Hopper
        credits: 3
        meetings:
          - {day: Mon, start: "9:30 AM", end: "10:45 AM"}
          - {day: Wed, start: "9:30 AM", end: "10:45 AM"}
      - number: 2
        type: LEC
        instructor: Lovelace
        credits: 3
        meetings:
          - {day: Tue, start: "9:30 AM", end: "10:45 AM"}
          - {day: Thu, start: "9:30 AM", end: "10:45 AM"}
      - number: 3
        type: LAB
        meetings:
          - {day: Wed, start: "2:00 PM", end: "3:50 PM"}
  - id: MATH 201
    name: Calculus
    sections:
      - number: 10
        credits: 4
        meetings:
          - {day: Mon, start: "9:30 AM", end: "10:45 AM"}
          - {day: Wed, start: "9:30 AM", end: "10:45 AM"}
      - number: 11
        credits: 4
        meetings:
          - {day: Fri, start: "1:00 PM", end: "3:30 PM"}
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func generateJSON(t *testing.T, args ...string) dto.GenerateSchedulesResponse {
	t.Helper()
	out, err := execute(t, append([]string{"generate", "--output", "json"}, args...)...)
	require.NoError(t, err)
	var resp dto.GenerateSchedulesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestGenerateCommand(t *testing.T) {
	catalog := writeCatalog(t)

	resp := generateJSON(t, "--catalog", catalog)
	assert.Equal(t, 3, resp.Count)
	assert.False(t, resp.Infeasible)
	require.Len(t, resp.Schedules, 3)
	for _, view := range resp.Schedules {
		assert.Equal(t, 7, view.MaxCredits)
		assert.NotEmpty(t, view.Sections[0].Color)
	}

	resp = generateJSON(t, "--catalog", catalog, "--pin", "11")
	assert.Equal(t, 2, resp.Count)

	resp = generateJSON(t, "--catalog", catalog, "--block", "Mon 9:30 AM")
	assert.Equal(t, 1, resp.Count)
	numbers := []int{}
	for _, section := range resp.Schedules[0].Sections {
		numbers = append(numbers, section.SectionNumber)
	}
	assert.ElementsMatch(t, []int{2, 3, 11}, numbers)

	resp = generateJSON(t, "--catalog", catalog, "--course", "MATH 201", "--limit", "1")
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Schedules, 1)
}

func TestGenerateCommandTable(t *testing.T) {
	catalog := writeCatalog(t)

	out, err := execute(t, "generate", "--catalog", catalog, "--course", "CS 101", "--pin", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Schedule 1 out of 1")
	assert.Contains(t, out, "Lovelace")
	assert.Contains(t, out, "Tue")
	assert.Contains(t, out, "9:30 AM")

	out, err = execute(t, "generate", "--catalog", catalog, "--pin", "1", "--pin", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "no valid class combinations")
}

func TestGenerateCommandExport(t *testing.T) {
	catalog := writeCatalog(t)
	target := filepath.Join(t.TempDir(), "schedule.csv")

	_, err := execute(t, "generate", "--catalog", catalog, "--export", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CS 101")

	_, err = execute(t, "generate", "--catalog", catalog, "--export", filepath.Join(t.TempDir(), "schedule.docx"))
	assert.Error(t, err)
}

func TestGenerateCommandErrors(t *testing.T) {
	catalog := writeCatalog(t)

	_, err := execute(t, "generate")
	assert.Error(t, err)

	_, err = execute(t, "generate", "--catalog", catalog, "--course", "BIO 100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIO 100")

	_, err = execute(t, "generate", "--catalog", catalog, "--block", "Someday 9:00 AM")
	assert.Error(t, err)

	_, err = execute(t, "generate", "--catalog", catalog, "--block", "Mon")
	assert.Error(t, err)

	csvPath := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("course_id\n"), 0o600))
	_, err = execute(t, "generate", "--catalog", csvPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--term")
}

func TestTermsCommand(t *testing.T) {
	out, err := execute(t, "terms", "--at", "2026-10-19")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Spring 2027")
	assert.Contains(t, lines[1], "Fall 2026")

	_, err = execute(t, "terms", "--at", "yesterday")
	assert.Error(t, err)
}
