package apierr

import "net/http"

type Code string

const (
	// not found
	StudyIDDoesNotExist   Code = "STUDY_ID_DOES_NOT_EXIST"
	AnalysisIDNotFound    Code = "ANALYSIS_ID_NOT_FOUND"
	UploadIDNotFound      Code = "UPLOAD_ID_NOT_FOUND"
	FileNotFound          Code = "FILE_NOT_FOUND"
	DonorDoesNotExist     Code = "DONOR_DOES_NOT_EXIST"
	SpecimenDoesNotExist  Code = "SPECIMEN_DOES_NOT_EXIST"
	SampleDoesNotExist    Code = "SAMPLE_DOES_NOT_EXIST"
	AnalysisTypeNotFound  Code = "ANALYSIS_TYPE_NOT_FOUND"
	StorageObjectNotFound Code = "STORAGE_OBJECT_NOT_FOUND"

	// already exists / duplicates
	StudyAlreadyExists       Code = "STUDY_ALREADY_EXISTS"
	DonorAlreadyExists       Code = "DONOR_ALREADY_EXISTS"
	SpecimenAlreadyExists    Code = "SPECIMEN_ALREADY_EXISTS"
	SampleAlreadyExists      Code = "SAMPLE_ALREADY_EXISTS"
	DuplicateAnalysisAttempt Code = "DUPLICATE_ANALYSIS_ATTEMPT"
	AnalysisIDCollision      Code = "ANALYSIS_ID_COLLISION"

	// corruption
	DonorIDIsCorrupted     Code = "DONOR_ID_IS_CORRUPTED"
	SpecimenIDIsCorrupted  Code = "SPECIMEN_ID_IS_CORRUPTED"
	SampleIDIsCorrupted    Code = "SAMPLE_ID_IS_CORRUPTED"
	FileIDIsCorrupted      Code = "FILE_ID_IS_CORRUPTED"
	AnalysisMissingFiles   Code = "ANALYSIS_MISSING_FILES"
	AnalysisMissingSamples Code = "ANALYSIS_MISSING_SAMPLES"

	// mismatching data
	MismatchingDonorData       Code = "MISMATCHING_DONOR_DATA"
	MismatchingSpecimenData    Code = "MISMATCHING_SPECIMEN_DATA"
	MismatchingSampleData      Code = "MISMATCHING_SAMPLE_DATA"
	SpecimenToDonorIDMismatch  Code = "SPECIMEN_TO_DONOR_ID_MISMATCH"
	SampleToSpecimenIDMismatch Code = "SAMPLE_TO_SPECIMEN_ID_MISMATCH"

	// request shape
	PayloadParsing        Code = "PAYLOAD_PARSING"
	MalformedParameter    Code = "MALFORMED_PARAMETER"
	SchemaViolation       Code = "SCHEMA_VIOLATION"
	MalformedJSONSchema   Code = "MALFORMED_JSON_SCHEMA"
	StudyIDMissing        Code = "STUDY_ID_MISSING"
	StudyIDMismatch       Code = "STUDY_ID_MISMATCH"
	InvalidFileUpdate     Code = "INVALID_FILE_UPDATE_REQUEST"
	IllegalFileUpdate     Code = "ILLEGAL_FILE_UPDATE_REQUEST"
	IllegalQueryParameter Code = "ILLEGAL_QUERY_PARAMETER"

	// lifecycle / policy
	UploadIDNotValidated              Code = "UPLOAD_ID_NOT_VALIDATED"
	AnalysisTypeIncorrectVersion      Code = "ANALYSIS_TYPE_INCORRECT_VERSION"
	SuppressedStateTransition         Code = "SUPPRESSED_STATE_TRANSITION"
	EntityNotRelatedToStudy           Code = "ENTITY_NOT_RELATED_TO_STUDY"
	MissingStorageObjects             Code = "MISSING_STORAGE_OBJECTS"
	MismatchingStorageObjectSizes     Code = "MISMATCHING_STORAGE_OBJECT_SIZES"
	MismatchingStorageObjectChecksums Code = "MISMATCHING_STORAGE_OBJECT_CHECKSUMS"
	ConcurrentModification            Code = "CONCURRENT_MODIFICATION"

	// auth
	UnauthorizedToken Code = "UNAUTHORIZED_TOKEN"
	ForbiddenToken    Code = "FORBIDDEN_TOKEN"

	// infrastructure
	StorageServiceError            Code = "STORAGE_SERVICE_ERROR"
	InvalidStorageDownloadResponse Code = "INVALID_STORAGE_DOWNLOAD_RESPONSE"
	ServiceUnavailable             Code = "SERVICE_UNAVAILABLE"
	UnknownError                   Code = "UNKNOWN_ERROR"
)

var statusByCode = map[Code]int{
	StudyIDDoesNotExist:   http.StatusNotFound,
	AnalysisIDNotFound:    http.StatusNotFound,
	UploadIDNotFound:      http.StatusNotFound,
	FileNotFound:          http.StatusNotFound,
	DonorDoesNotExist:     http.StatusNotFound,
	SpecimenDoesNotExist:  http.StatusNotFound,
	SampleDoesNotExist:    http.StatusNotFound,
	AnalysisTypeNotFound:  http.StatusNotFound,
	StorageObjectNotFound: http.StatusNotFound,

	StudyAlreadyExists:       http.StatusConflict,
	DonorAlreadyExists:       http.StatusConflict,
	SpecimenAlreadyExists:    http.StatusConflict,
	SampleAlreadyExists:      http.StatusConflict,
	DuplicateAnalysisAttempt: http.StatusConflict,
	AnalysisIDCollision:      http.StatusConflict,

	DonorIDIsCorrupted:     http.StatusBadRequest,
	SpecimenIDIsCorrupted:  http.StatusBadRequest,
	SampleIDIsCorrupted:    http.StatusBadRequest,
	FileIDIsCorrupted:      http.StatusBadRequest,
	AnalysisMissingFiles:   http.StatusInternalServerError,
	AnalysisMissingSamples: http.StatusInternalServerError,

	MismatchingDonorData:       http.StatusConflict,
	MismatchingSpecimenData:    http.StatusConflict,
	MismatchingSampleData:      http.StatusConflict,
	SpecimenToDonorIDMismatch:  http.StatusConflict,
	SampleToSpecimenIDMismatch: http.StatusConflict,

	PayloadParsing:        http.StatusUnprocessableEntity,
	MalformedParameter:    http.StatusBadRequest,
	SchemaViolation:       http.StatusBadRequest,
	MalformedJSONSchema:   http.StatusBadRequest,
	StudyIDMissing:        http.StatusBadRequest,
	StudyIDMismatch:       http.StatusConflict,
	InvalidFileUpdate:     http.StatusBadRequest,
	IllegalFileUpdate:     http.StatusBadRequest,
	IllegalQueryParameter: http.StatusBadRequest,

	UploadIDNotValidated:              http.StatusConflict,
	AnalysisTypeIncorrectVersion:      http.StatusConflict,
	SuppressedStateTransition:         http.StatusBadRequest,
	EntityNotRelatedToStudy:           http.StatusBadRequest,
	MissingStorageObjects:             http.StatusConflict,
	MismatchingStorageObjectSizes:     http.StatusConflict,
	MismatchingStorageObjectChecksums: http.StatusConflict,
	ConcurrentModification:            http.StatusConflict,

	UnauthorizedToken: http.StatusUnauthorized,
	ForbiddenToken:    http.StatusForbidden,

	StorageServiceError:            http.StatusBadGateway,
	InvalidStorageDownloadResponse: http.StatusBadGateway,
	ServiceUnavailable:             http.StatusServiceUnavailable,
	UnknownError:                   http.StatusInternalServerError,
}

func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
