package httpapi

import (
	"io"
	"net/http"

	"olympreg/internal/auth"
	"olympreg/internal/bulkimport"
	dErrors "olympreg/pkg/domain-errors"
)

// maxImportBody caps one bulk upload: the CSV plus an optional attachment
// archive.
const maxImportBody = 64 << 20

type importResponse struct {
	Rows      int `json:"rows"`
	Committed int `json:"committed"`
}

// importOptions reads the multipart upload shared by all four import
// endpoints: a "csv" file part, an optional "attachments" ZIP part, and an
// optional "delimiter" value of "," or ";".
func importOptions(r *http.Request, checkOnly bool) ([]byte, bulkimport.Options, error) {
	if err := r.ParseMultipartForm(maxImportBody); err != nil {
		return nil, bulkimport.Options{}, dErrors.New(dErrors.CodeFormatInvalid,
			"request is not a valid multipart upload")
	}

	csvPart, _, err := r.FormFile("csv")
	if err != nil {
		return nil, bulkimport.Options{}, dErrors.New(dErrors.CodeRequiredMissing,
			"no csv file uploaded")
	}
	defer csvPart.Close()
	data, err := io.ReadAll(csvPart)
	if err != nil {
		return nil, bulkimport.Options{}, err
	}

	opts := bulkimport.Options{Delimiter: ',', CheckOnly: checkOnly}
	if r.FormValue("delimiter") == ";" {
		opts.Delimiter = ';'
	}

	if zipPart, _, err := r.FormFile("attachments"); err == nil {
		defer zipPart.Close()
		opts.Archive, err = io.ReadAll(zipPart)
		if err != nil {
			return nil, bulkimport.Options{}, err
		}
	}
	return data, opts, nil
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, checkOnly bool,
	run func(r *http.Request, data []byte, opts bulkimport.Options) (bulkimport.Result, error)) {
	data, opts, err := importOptions(r, checkOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := run(r, data, opts)
	if err != nil {
		// A partial commit still reports what landed.
		if dErrors.HasCode(err, dErrors.CodeRaceCondition) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":     string(dErrors.CodeRaceCondition),
				"message":   err.Error(),
				"rows":      res.Rows,
				"committed": res.Committed,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Rows: res.Rows, Committed: res.Committed})
}

func (s *Server) handleImportCountriesCheck(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, true, s.importCountries)
}

func (s *Server) handleImportCountries(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, false, s.importCountries)
}

func (s *Server) handleImportPeopleCheck(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, true, s.importPeople)
}

func (s *Server) handleImportPeople(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, false, s.importPeople)
}

func (s *Server) importCountries(r *http.Request, data []byte, opts bulkimport.Options) (bulkimport.Result, error) {
	return s.importer.ImportCountries(r.Context(), auth.ActorFrom(r.Context()), data, opts)
}

func (s *Server) importPeople(r *http.Request, data []byte, opts bulkimport.Options) (bulkimport.Result, error) {
	return s.importer.ImportPeople(r.Context(), auth.ActorFrom(r.Context()), data, opts)
}
