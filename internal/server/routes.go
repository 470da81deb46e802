package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ryabkov82/dataset-merger/internal/export"
	"github.com/ryabkov82/dataset-merger/internal/ingest"
	"github.com/ryabkov82/dataset-merger/internal/key"
	"github.com/ryabkov82/dataset-merger/internal/logger"
	"github.com/ryabkov82/dataset-merger/internal/merge"
	"github.com/ryabkov82/dataset-merger/internal/table"
)

//go:embed static
var staticFS embed.FS

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v0")
	api.POST("/sessions", s.handleCreateSession)

	sess := api.Group("/sessions/:id")
	sess.POST("/datasets/:slot", s.handleUpload)
	sess.PUT("/datasets/:slot/sheet", s.handleSelectSheet)
	sess.GET("/keys/guess", s.handleGuessKeys)
	sess.POST("/merge", s.handleMerge)
	sess.GET("/merge/download", s.handleDownload)
}

// datasetResponse описывает загруженный набор данных.
type datasetResponse struct {
	Name    string   `json:"name"`
	Format  string   `json:"format"`
	Sheets  []string `json:"sheets,omitempty"`
	Sheet   string   `json:"sheet,omitempty"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

func newDatasetResponse(f *ingest.File, sheet string, t *table.Table) datasetResponse {
	return datasetResponse{
		Name:    f.Name,
		Format:  string(f.Format),
		Sheets:  f.Sheets(),
		Sheet:   sheet,
		Columns: t.Columns(),
		Rows:    t.NumRows(),
	}
}

type mergeRequest struct {
	Keys1     []string `json:"keys1" binding:"required,min=1"`
	Keys2     []string `json:"keys2" binding:"required,min=1"`
	How       string   `json:"how" binding:"required,oneof=inner left right outer"`
	Normalize *bool    `json:"normalize"`
}

type mergeResponse struct {
	Rows    int             `json:"rows"`
	Cols    int             `json:"cols"`
	Columns []string        `json:"columns"`
	Preview [][]table.Value `json:"preview"`
}

func (s *Server) handleIndex(c *gin.Context) {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "интерфейс недоступен"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.id})
}

// session достает сессию по :id, при неудаче сам отвечает клиенту.
func (s *Server) session(c *gin.Context) (*session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена или истекла"})
	}
	return sess, ok
}

// parseSlot переводит :slot в индекс 0 или 1.
func parseSlot(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("slot"))
	if err != nil || n < 1 || n > 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "номер набора данных должен быть 1 или 2"})
		return 0, false
	}
	return n - 1, true
}

func (s *Server) handleUpload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	slot, ok := parseSlot(c)
	if !ok {
		return
	}

	maxSize := s.cfg.Server.MaxUploadSize
	if c.Request.ContentLength > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("файл больше допустимых %d байт", maxSize),
		})
		return
	}
	// ограничение действует уже при чтении тела, до разбора multipart
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("файл больше допустимых %d байт", maxSize),
			})
		case errors.Is(err, http.ErrMissingFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "файл не передан в поле file"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ошибка чтения файла: %v", err)})
		}
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ошибка чтения файла: %v", err)})
		return
	}
	defer src.Close()

	f, err := ingest.Open(filepath.Base(fileHeader.Filename), src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sheet := ""
	if sheets := f.Sheets(); len(sheets) > 0 {
		sheet = sheets[0]
	}
	tb, err := f.Table(sheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.setDataset(slot, f, sheet, tb)

	logger.FromContext(c.Request.Context()).Info("набор данных загружен",
		"session", sess.id,
		"slot", slot+1,
		"file", f.Name,
		"rows", tb.NumRows(),
		"cols", tb.NumCols(),
	)
	c.JSON(http.StatusOK, newDatasetResponse(f, sheet, tb))
}

func (s *Server) handleSelectSheet(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	var req struct {
		Sheet string `json:"sheet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не указан лист"})
		return
	}

	sess.mu.Lock()
	f := sess.files[slot]
	sess.mu.Unlock()
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "набор данных еще не загружен"})
		return
	}
	if f.Format != ingest.FormatXLSX {
		c.JSON(http.StatusBadRequest, gin.H{"error": "выбор листа доступен только для файлов xlsx"})
		return
	}
	tb, err := f.Table(req.Sheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.setDataset(slot, f, req.Sheet, tb)
	c.JSON(http.StatusOK, newDatasetResponse(f, req.Sheet, tb))
}

func (s *Server) handleGuessKeys(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	t1, t2 := sess.tables[0], sess.tables[1]
	sess.mu.Unlock()
	if t1 == nil || t2 == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "сначала загрузите оба набора данных"})
		return
	}
	keys := key.Guess(t1.Columns(), t2.Columns())
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (s *Server) handleMerge(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("некорректный запрос: %v", err)})
		return
	}

	sess.mu.Lock()
	t1, t2 := sess.tables[0], sess.tables[1]
	sess.mu.Unlock()
	if t1 == nil || t2 == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "сначала загрузите оба набора данных"})
		return
	}

	how, err := merge.ParseMode(req.How)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doNormalize := true
	if req.Normalize != nil {
		doNormalize = *req.Normalize
	}

	res, err := merge.Merge(merge.Request{
		Left:          t1,
		Right:         t2,
		LeftKeys:      req.Keys1,
		RightKeys:     req.Keys2,
		How:           how,
		Normalize:     doNormalize,
		NormalizeOpts: s.cfg.Merge.NormalizeOptions(),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	sess.result = res
	sess.mu.Unlock()

	preview := res.Head(s.cfg.Merge.PreviewRows)
	rows := make([][]table.Value, preview.NumRows())
	for i := range rows {
		rows[i] = preview.Row(i)
	}

	logger.FromContext(c.Request.Context()).Info("таблицы объединены",
		"session", sess.id,
		"how", how,
		"rows", res.NumRows(),
		"cols", res.NumCols(),
	)
	c.JSON(http.StatusOK, mergeResponse{
		Rows:    res.NumRows(),
		Cols:    res.NumCols(),
		Columns: res.Columns(),
		Preview: rows,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	res := sess.result
	sess.mu.Unlock()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "сначала выполните объединение"})
		return
	}

	var buf bytes.Buffer
	if err := export.XLSX(res, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFileName))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
