package cli

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "faces.db"))
	t.Setenv("IMAGE_STORE", "local")
	t.Setenv("FACES_DIR", filepath.Join(dir, "faces"))
	t.Setenv("EXTRACTOR", "mock")
	t.Setenv("EMBEDDING_DIM", "64")
	t.Setenv("MQTT_BROKER", "")
	return dir
}

func writePhoto(t *testing.T, dir, name string, size int, c color.Color) string {
	t.Helper()
	raw, err := media.EncodeJPEG(imaging.New(size, size, c))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLI_EnrollListRecognizeDelete(t *testing.T) {
	dir := setupEnv(t)
	red := writePhoto(t, dir, "red.jpg", 64, color.NRGBA{R: 220, A: 255})
	blue := writePhoto(t, dir, "blue.jpg", 64, color.NRGBA{B: 220, A: 255})
	tiny := writePhoto(t, dir, "tiny.jpg", 8, color.NRGBA{G: 220, A: 255})
	missing := filepath.Join(dir, "missing.jpg")

	out, err := execute(t, "enroll", "--no-progress", "--user", " U_0001 ", red, blue, missing, tiny)
	require.NoError(t, err)

	var batch domain.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, "U_0001", batch.OwnerID)
	assert.Equal(t, 2, batch.Added)
	assert.Equal(t, 4, batch.Total)
	require.Len(t, batch.Results, 4)
	assert.Equal(t, domain.ItemStatusOK, batch.Results[0].Status)
	assert.Equal(t, domain.ItemStatusOK, batch.Results[1].Status)
	assert.Equal(t, "invalid_image", batch.Results[2].Error)
	assert.Equal(t, "no_face_detected", batch.Results[3].Error)
	redID := batch.Results[0].FaceID

	out, err = execute(t, "faces", "list", "--json", "--user", "U_0001")
	require.NoError(t, err)
	var faces []domain.FaceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &faces))
	assert.Len(t, faces, 2)

	out, err = execute(t, "faces", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "FACE_ID")
	assert.Contains(t, out, redID)

	out, err = execute(t, "recognize", red)
	require.NoError(t, err)
	var result domain.RecognitionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Faces, 1)
	require.NotNil(t, result.Faces[0].Best)
	assert.Equal(t, redID, result.Faces[0].Best.FaceID)
	assert.Equal(t, "U_0001", result.Faces[0].Best.OwnerID)

	out, err = execute(t, "faces", "delete", redID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+redID+"\n", out)

	_, err = execute(t, "faces", "delete", redID)
	assert.ErrorContains(t, err, "not found")

	out, err = execute(t, "faces", "delete-user", "U_0001")
	require.NoError(t, err)
	var deletion domain.OwnerDeletion
	require.NoError(t, json.Unmarshal([]byte(out), &deletion))
	assert.Equal(t, 1, deletion.Deleted)
	assert.Equal(t, []string{batch.Results[1].FaceID}, deletion.FaceIDs)
}

func TestCLI_RecognizeThresholdOverride(t *testing.T) {
	dir := setupEnv(t)
	red := writePhoto(t, dir, "red.jpg", 64, color.NRGBA{R: 220, A: 255})
	blue := writePhoto(t, dir, "blue.jpg", 64, color.NRGBA{B: 220, A: 255})

	_, err := execute(t, "enroll", "--no-progress", "-u", "U_0001", red, blue)
	require.NoError(t, err)

	out, err := execute(t, "recognize", "--top-k", "1", red)
	require.NoError(t, err)
	var result domain.RecognitionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Faces, 1)
	assert.Len(t, result.Faces[0].Candidates, 1)

	_, err = execute(t, "recognize", "--threshold", "1.5", red)
	assert.ErrorContains(t, err, "threshold must be in [-1,1]")
}

func TestCLI_EnrollNothingEnrolled(t *testing.T) {
	dir := setupEnv(t)
	tiny := writePhoto(t, dir, "tiny.jpg", 8, color.White)

	out, err := execute(t, "enroll", "--no-progress", "--user", "U_0001", tiny)
	assert.EqualError(t, err, "no face was enrolled")
	assert.Contains(t, out, "no_face_detected")
}

func TestCLI_EnrollValidation(t *testing.T) {
	dir := setupEnv(t)
	red := writePhoto(t, dir, "red.jpg", 64, color.NRGBA{R: 220, A: 255})

	_, err := execute(t, "enroll", "--user", "../etc", red)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "enroll", red)
	assert.ErrorContains(t, err, `required flag(s) "user" not set`)

	_, err = execute(t, "enroll", "--user", "U_0001")
	assert.Error(t, err)
}

func TestCLI_EmptyGallery(t *testing.T) {
	dir := setupEnv(t)
	red := writePhoto(t, dir, "red.jpg", 64, color.NRGBA{R: 220, A: 255})

	out, err := execute(t, "recognize", red)
	require.NoError(t, err)
	var result domain.RecognitionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.GalleryEmpty)
}

func TestCLI_MigrateSQLite(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema ready")
}

func TestCLI_EnvFile(t *testing.T) {
	dir := setupEnv(t)
	red := writePhoto(t, dir, "red.jpg", 64, color.NRGBA{R: 220, A: 255})
	blue := writePhoto(t, dir, "blue.jpg", 64, color.NRGBA{B: 220, A: 255})

	// registered so the value loaded from the file is cleared afterwards
	t.Setenv("FACE_TOP_K", "5")
	require.NoError(t, os.Unsetenv("FACE_TOP_K"))

	envFile := filepath.Join(dir, "facectl.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FACE_TOP_K=1\n"), 0o600))

	_, err := execute(t, "--env-file", envFile, "enroll", "--no-progress", "-u", "U_0001", red, blue)
	require.NoError(t, err)

	out, err := execute(t, "--env-file", envFile, "recognize", red)
	require.NoError(t, err)
	var result domain.RecognitionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Faces, 1)
	assert.Len(t, result.Faces[0].Candidates, 1)

	_, err = execute(t, "--env-file", filepath.Join(dir, "absent.env"), "migrate")
	assert.ErrorContains(t, err, "load env file")
}
