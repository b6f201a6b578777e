package postgres

import (
	accountstore "boxdesk/internal/adapters/storage/account"
	boxstore "boxdesk/internal/adapters/storage/box"
	classtypestore "boxdesk/internal/adapters/storage/classtype"
	coachstore "boxdesk/internal/adapters/storage/coach"
	roomstore "boxdesk/internal/adapters/storage/room"
	savedsectionstore "boxdesk/internal/adapters/storage/savedsection"
	schedulestore "boxdesk/internal/adapters/storage/schedule"
)

// Compile-time checks that the pgx stores are drop-in replacements for the SQLite ones.
var (
	_ boxstore.Store              = (*BoxStore)(nil)
	_ accountstore.Store          = (*AccountStore)(nil)
	_ roomstore.Store             = (*RoomStore)(nil)
	_ classtypestore.Store        = (*ClassTypeStore)(nil)
	_ coachstore.Store            = (*CoachStore)(nil)
	_ schedulestore.InstanceStore = (*InstanceStore)(nil)
	_ savedsectionstore.Store     = (*SavedSectionStore)(nil)
)
