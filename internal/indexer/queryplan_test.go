// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/store"
)

func TestBuildPlanSelectsTVSearchForEpisodeName(t *testing.T) {
	caps := store.Caps{Search: true, TV: true, Movie: true}
	plan, ok := BuildPlan("Some.Show.S01E02.1080p.WEB-DL-GROUP", caps, nil)
	require.True(t, ok)
	require.Equal(t, KindTVSearch, plan.Kind)
	require.NotEmpty(t, plan.Term)
}

func TestBuildPlanSelectsMovieForYearToken(t *testing.T) {
	caps := store.Caps{Search: true, Movie: true}
	plan, ok := BuildPlan("Some.Movie.2021.1080p.BluRay-GROUP", caps, nil)
	require.True(t, ok)
	require.Equal(t, KindMovie, plan.Kind)
}

func TestBuildPlanFallsBackToGenericSearchWhenCapMissing(t *testing.T) {
	caps := store.Caps{Search: true}
	plan, ok := BuildPlan("Some.Show.S01E02.1080p.WEB-DL-GROUP", caps, nil)
	require.True(t, ok)
	require.Equal(t, KindSearch, plan.Kind)
}

func TestBuildPlanRejectsWhenNoMatchingCapAtAll(t *testing.T) {
	caps := store.Caps{}
	_, ok := BuildPlan("Some.Show.S01E02.1080p.WEB-DL-GROUP", caps, nil)
	require.False(t, ok)
}
