// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package predictor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/process_document", r.URL.Path)
		require.Equal(t, "geheim", r.Header.Get("x-api-key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "predict", r.PostForm.Get("process_type"))
		assert.Equal(t, "Hernien-OP", r.PostForm.Get("category"))
		assert.NotEmpty(t, r.PostForm.Get("text"))

		w.Write([]byte(`{"result":{"prediction":[
			{"zitat":"Schmerzen im Knie","begruendung":"weil","goa_ziffer":"3306","quantitaet":1,"faktor":2.3,"beschreibung":"Untersuchung"}
		]}}`))
	}))
	defer srv.Close()

	preds, err := New(srv.URL, "geheim").Predict(t.Context(), "anonymisierter Text", "Hernien-OP")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "Schmerzen im Knie", preds[0].Zitat)
	assert.Equal(t, "3306", preds[0].GoaZiffer)
	assert.Equal(t, 2.3, preds[0].Faktor)
}

func TestPredictTopLevelFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prediction":[{"zitat":"alt","goa_ziffer":"1"}]}`))
	}))
	defer srv.Close()

	preds, err := New(srv.URL, "k").Predict(t.Context(), "t", "c")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "alt", preds[0].Zitat)
}

func TestPredictionAnzahlAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prediction":[{"zitat":"x","anzahl":3}]}`))
	}))
	defer srv.Close()

	preds, err := New(srv.URL, "k").Predict(t.Context(), "t", "c")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, 3.0, preds[0].Quantitaet)
}

func TestPredictRequiresCategory(t *testing.T) {
	_, err := New("http://unused", "k").Predict(t.Context(), "text", "")
	assert.Error(t, err)
}

func TestPredictErrorCarriesRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-1234")
		http.Error(w, "kaputt", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Predict(t.Context(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "req-1234")
	assert.Contains(t, err.Error(), "502")
}

func TestOCRDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ocr", r.PostForm.Get("process_type"))
		assert.Equal(t, "google_document_ai", r.PostForm.Get("ocr_processor"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "befund.pdf", header.Filename)

		w.Write([]byte(`{"result":{"ocr":{"ocr_text":"Der Befund lautet"}}}`))
	}))
	defer srv.Close()

	text, err := New(srv.URL, "k").OCRDocument(t.Context(), "befund.pdf", []byte("%PDF"), "c")
	require.NoError(t, err)
	assert.Equal(t, "Der Befund lautet", text)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL, "k").Ping(t.Context()))
}

func TestPingUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := New(srv.URL, "falsch").Ping(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
