// package formatter exports scrape and classification output to files
// (JSON, CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// Default filenames for the three JSON exports.
const (
	RawTitlesFile      = "raw_songs.json"
	ProcessedSongsFile = "processed_songs.json"
	RealSongsFile      = "songs.json"
)

// rawExport is the shape written to raw_songs.json.
type rawExport struct {
	Profile            string   `json:"profile"`
	TotalVideosScraped int      `json:"total_videos_scraped"`
	TotalUniqueTitles  int      `json:"total_unique_titles"`
	RawTitles          []string `json:"raw_titles"`
	ScrapedAt          string   `json:"scraped_at"`
}

// processedExport is the shape written to processed_songs.json.
type processedExport struct {
	Profile             string                  `json:"profile"`
	TotalUniqueTitles   int                     `json:"total_unique_titles"`
	RealSongsIdentified int                     `json:"real_songs_identified"`
	Songs               []models.ClassifiedSong `json:"songs"`
}

// RawTitlesJSON renders a scrape result for raw_songs.json.
func RawTitlesJSON(result *models.ScrapeResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scrape result")
	}
	export := rawExport{
		Profile:            result.Profile,
		TotalVideosScraped: result.TotalVideosScraped,
		TotalUniqueTitles:  len(result.UniqueTitles),
		RawTitles:          result.UniqueTitles,
		ScrapedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	return shared.MarshalJSON(export, true)
}

// ProcessedSongsJSON renders the full classified set for processed_songs.json.
func ProcessedSongsJSON(profile string, songs []models.ClassifiedSong) ([]byte, error) {
	export := processedExport{
		Profile:             profile,
		TotalUniqueTitles:   len(songs),
		RealSongsIdentified: models.CountRealSongs(songs),
		Songs:               songs,
	}
	return shared.MarshalJSON(export, true)
}

// RealSongsJSON renders only the identified songs for songs.json.
func RealSongsJSON(profile string, songs []models.ClassifiedSong) ([]byte, error) {
	return ProcessedSongsJSON(profile, models.RealSongs(songs))
}

// SongsToCSV converts classified songs to CSV with columns:
// TikTok Title, Song, Artist, Type, Confidence
func SongsToCSV(songs []models.ClassifiedSong) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"TikTok Title", "Song", "Artist", "Type", "Confidence"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.RawTitle,
			stringOrEmpty(song.Song),
			stringOrEmpty(song.Artist),
			string(song.Kind),
			string(song.Confidence),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SongsToText converts classified songs to a plain text listing. Titles the
// classifier could not identify are marked unidentified.
func SongsToText(profile string, songs []models.ClassifiedSong) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Profile: @%s\n", profile))
	buf.WriteString(fmt.Sprintf("Titles: %d\n", len(songs)))
	buf.WriteString(fmt.Sprintf("Identified: %d\n\n", models.CountRealSongs(songs)))

	for i, song := range songs {
		if song.IsRealSong() {
			buf.WriteString(fmt.Sprintf("%d. %s - %s [%s/%s]\n", i+1, stringOrEmpty(song.Artist), *song.Song, song.Kind, song.Confidence))
		} else {
			buf.WriteString(fmt.Sprintf("%d. (unidentified) %s\n", i+1, song.RawTitle))
		}
	}

	return buf.Bytes()
}

// ExportResult contains the paths of files created by WriteExports.
type ExportResult struct {
	RawFile       string
	ProcessedFile string
	SongsFile     string
}

// WriteExports writes the three JSON exports into dir. The processed and
// real-song files are skipped when songs is nil (scrape-only runs).
func WriteExports(dir string, scrape *models.ScrapeResult, songs []models.ClassifiedSong) (*ExportResult, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{}

	rawData, err := RawTitlesJSON(scrape)
	if err != nil {
		return nil, fmt.Errorf("failed to generate raw titles JSON: %w", err)
	}
	result.RawFile = dir + "/" + RawTitlesFile
	if err := os.WriteFile(result.RawFile, rawData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", RawTitlesFile, err)
	}

	if songs == nil {
		return result, nil
	}

	processedData, err := ProcessedSongsJSON(scrape.Profile, songs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate processed songs JSON: %w", err)
	}
	result.ProcessedFile = dir + "/" + ProcessedSongsFile
	if err := os.WriteFile(result.ProcessedFile, processedData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ProcessedSongsFile, err)
	}

	songsData, err := RealSongsJSON(scrape.Profile, songs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate songs JSON: %w", err)
	}
	result.SongsFile = dir + "/" + RealSongsFile
	if err := os.WriteFile(result.SongsFile, songsData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", RealSongsFile, err)
	}

	return result, nil
}

// WriteCSVExport writes the classified songs as CSV.
//
// Defaults to {profile}_songs.csv as the filename.
func WriteCSVExport(profile string, songs []models.ClassifiedSong, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_songs.csv", profile)
	}

	csvData, err := SongsToCSV(songs)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport writes the classified songs as plain text.
//
// Defaults to {profile}_songs.txt as the filename.
func WriteTextExport(profile string, songs []models.ClassifiedSong, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_songs.txt", profile)
	}

	if err := os.WriteFile(filepath, SongsToText(profile, songs), 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
