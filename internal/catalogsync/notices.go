package catalogsync

import "laptopkita/internal/catalog"

const (
	MsgNoData       = "You have not added any laptops yet."
	MsgLoadFailed   = "Failed to load data."
	MsgServerBusy   = "Database is idle, please submit the data again."
	MsgUploadFailed = "Something went wrong, please try again."
	MsgDeleteFailed = "Request timed out or something went wrong, please try again."
	MsgNotImage     = "The selected file is not a supported image."
)

func loadNotice(err error) Notice {
	if catalog.KindOf(err) == catalog.KindNotFound {
		return Notice{Reason: ReasonNoData, Message: MsgNoData}
	}
	return Notice{Reason: ReasonLoadFailed, Message: MsgLoadFailed}
}

func mutationNotice(err error, generic string) Notice {
	if catalog.KindOf(err) == catalog.KindServer {
		return Notice{Reason: ReasonServerBusy, Message: MsgServerBusy}
	}
	return Notice{Reason: ReasonRequestFailed, Message: generic}
}
