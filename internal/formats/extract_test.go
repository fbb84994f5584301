package formats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"labtrace/internal/rawfile"
	"labtrace/internal/util"
)

func TestExtractBeadStudio(t *testing.T) {
	fx := fixtures["beadstudio"]
	c := rawfile.Parse(fx.path, []byte(fx.body))

	rec, err := extractBeadStudio(c)
	require.NoError(t, err)
	require.Equal(t, "beadstudio", rec.FileType)
	require.Equal(t, "PlatformLab", rec.Metadata["investigator_name"])
	require.Equal(t, "GSA-24v3-0_A1", rec.Metadata["manifest_id"])
	require.Len(t, rec.Samples, 2)
	require.Equal(t, "S001", rec.Samples[0]["sample_id"])
	require.Equal(t, "Alpha", rec.Samples[0]["sample_name"])
	require.Equal(t, "WG001", rec.Samples[0]["sample_plate"])
}

func TestExtractBeadStudioMissingData(t *testing.T) {
	body := "[Header],,\nModule,BeadStudio,\n"
	_, err := extractBeadStudio(rawfile.Parse("x.csv", []byte(body)))
	require.True(t, errors.Is(err, util.ErrMalformedInput))
}

func TestExtractThermalReport(t *testing.T) {
	fx := fixtures["thermal-report"]
	rec, err := extractThermalReport(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "A00618", rec.Metadata["instrument_id"])
	require.Equal(t, "SideA", rec.Metadata["run_side"])
	require.Equal(t, "2024-01-19", rec.Metadata["run_date"])
	require.Equal(t, 2, rec.Metadata["number_of_data_points"])
	require.Nil(t, rec.Samples)

	columns := rec.Metadata["columns"].(map[string]any)
	require.Equal(t, "Time", columns["column_1"])
	require.Equal(t, "Current Cycle", columns["column_2"])
}

func TestExtractFMGenerationChannelsStaySeparate(t *testing.T) {
	fx := fixtures["fm-generation"]
	rec, err := extractFMGeneration(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "A00618", rec.Metadata["instrument_name"])

	// Per-channel summaries must land as sibling keys, never merged.
	require.Equal(t, 1.25, rec.Metadata["focusmodel_results_green.best_focus"])
	require.Equal(t, 1.31, rec.Metadata["focusmodel_results_red.best_focus"])
	require.Equal(t, 0.002, rec.Metadata["focusmodel_results_green.tilt_x"])
	require.Equal(t, 0.004, rec.Metadata["focusmodel_results_red.tilt_x"])
}

func TestExtractFMAutoTiltDeclaredRowCap(t *testing.T) {
	fx := fixtures["fm-autotilt"]
	rec, err := extractFMAutoTilt(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "A00618", rec.Metadata["instrument_id"])
	require.Equal(t, "2024-01-19", rec.Metadata["date"])
	require.Equal(t, "15-59-34", rec.Metadata["time"])

	// Marker declares Rows = 2, so the third data row is dropped.
	require.Len(t, rec.Samples, 2)
	require.Equal(t, -1.0, rec.Samples[0]["Z Position"])
	require.Equal(t, "ftm_through-focus_stack_1_rows_2", rec.Samples[0]["section"])
}

func TestExtractIlluminaProposalID(t *testing.T) {
	fx := fixtures["illumina-samplesheet"]

	// No ORID in the filename: falls back to Experiment Name.
	rec, err := extractIlluminaSampleSheet(rawfile.Parse("SampleSheet.csv", []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "ORID0036", rec.Metadata["proposal_id"])
	require.Equal(t, "ORID0036", rec.ORID())

	// Filename wins over the sheet when both carry one.
	rec, err = extractIlluminaSampleSheet(rawfile.Parse("ORID0099_SampleSheet.csv", []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "ORID0099", rec.ORID())
}

func TestExtractNanoDropQC(t *testing.T) {
	fx := fixtures["nanodrop-qc"]
	rec, err := extractNanoDropQC(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, 2, rec.Metadata["total_samples"])
	require.Equal(t, "S001", rec.Samples[0]["sample_id"])
	require.Equal(t, 52.4, rec.Samples[0]["concentration_ng_ul"])
	require.Equal(t, 1.82, rec.Samples[0]["ratio_260_280"])
	require.Equal(t, 2.11, rec.Samples[0]["ratio_260_230"])
}

func TestExtractSamplesReport(t *testing.T) {
	fx := fixtures["samples-report"]
	rec, err := extractSamplesReport(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Len(t, rec.Samples, 1)
	require.Equal(t, "S002", rec.Samples[0]["sample_id"])
	require.Equal(t, "low concentration, repeat extraction", rec.Samples[0]["notes"])
	require.Equal(t, "JM", rec.Samples[0]["Reviewer"])
}

func TestExtractNanoporeSampleSheet(t *testing.T) {
	fx := fixtures["nanopore"]
	rec, err := extractNanopore(rawfile.Parse(fx.path, []byte(fx.body)))
	require.NoError(t, err)
	require.Equal(t, "nanopore", rec.FileType)
	require.Equal(t, "sample_sheet", rec.Metadata["nanopore_kind"])
	require.Equal(t, "PAM12345", rec.Metadata["flow_cell_id"])
	require.Len(t, rec.Samples, 1)
	require.Equal(t, "S001", rec.Samples[0]["sample_id"])
}

func TestExtractNanoporeFinalSummary(t *testing.T) {
	body := "instrument=PC24B100\n" +
		"flow_cell_id=PAM12345\n" +
		"protocol_run_id=c1b2\n" +
		"basecalling_enabled=1\n"
	rec, err := extractNanopore(rawfile.Parse("final_summary_PAM12345.txt", []byte(body)))
	require.NoError(t, err)
	require.Equal(t, "final_summary", rec.Metadata["nanopore_kind"])
	require.Equal(t, "PC24B100", rec.Metadata["instrument"])
	require.Equal(t, "PAM12345", rec.Metadata["flow_cell_id"])
}

func TestExtractNanoporeSequencingSummary(t *testing.T) {
	body := "read_id\trun_id\tsample_id\tpore_type\tpasses_filtering\tmean_qscore_template\n" +
		"r1\trun1\tS001\tr10.4\tTRUE\t12.0\n" +
		"r2\trun1\tS001\tr10.4\tFALSE\t6.0\n" +
		"r3\trun1\tS002\tr10.4\tTRUE\t9.0\n"
	rec, err := extractNanopore(rawfile.Parse("sequencing_summary_PAM12345.txt", []byte(body)))
	require.NoError(t, err)
	require.Equal(t, 3, rec.Metadata["total_reads"])
	require.Equal(t, 2, rec.Metadata["passed_filtering_count"])
	require.Equal(t, 9.0, rec.Metadata["mean_qscore"])
	require.Equal(t, []string{"S001", "S002"}, rec.Metadata["unique_samples"])
	require.Equal(t, []string{"run1"}, rec.Metadata["unique_run_ids"])
}

func TestExtractNanoporePoreScan(t *testing.T) {
	body := "channel,well,mux_scan_assessment\n" +
		"1,1,single_pore\n" +
		"1,2,saturated\n" +
		"2,1,single_pore\n" +
		"2,2,zero\n"
	rec, err := extractNanopore(rawfile.Parse("pore_scan_data.csv", []byte(body)))
	require.NoError(t, err)
	require.Equal(t, "pore_scan", rec.Metadata["nanopore_kind"])
	require.Equal(t, 2, rec.Metadata["available_pores"])
	require.Equal(t, 1, rec.Metadata["saturated_wells"])
	require.Equal(t, 4, rec.Metadata["total_wells"])
}
