package drive

import (
	"slices"

	"github.com/mathieures/ymd/pkg/email"
)

// Remove deletes the named virtual file from the target folder, or the
// named backend folder. A name denoting both at once fails with
// AmbiguousNameError regardless of recurse. Removing a folder that still
// holds files or subfolders requires recurse; contained mails are trashed
// first, then subfolders are deleted deepest first, then the folder
// itself.
func (d *Drive) Remove(name string, recurse bool) error {
	d.log.Debug().Str("name", name).Str("folder", d.target).Msg("trying to delete file or folder")

	files, err := d.Files(0)
	if err != nil {
		return err
	}

	folders, err := d.Folders()
	if err != nil {
		return err
	}

	if files.Contains(name) {
		if slices.Contains(folders, name) {
			return &AmbiguousNameError{Name: name, Folder: d.target}
		}
		return d.sessions[0].DeleteMails(files.Chunks(name), d.target, true)
	}

	if !slices.Contains(folders, name) {
		if recurse {
			return &FolderNotFoundError{Name: name}
		}
		return &FileNotFoundError{Name: name}
	}

	d.log.Debug().Str("folder", name).Msg("found folder to delete")

	contained, err := d.filesInFolder(name, "")
	if err != nil {
		return err
	}
	subfolders, err := d.subfolders(name, true)
	if err != nil {
		return err
	}
	if (contained.Len() > 0 || len(subfolders) > 0) && !recurse {
		return &FolderNotEmptyError{Name: name}
	}

	var doomed []email.Mail
	for _, fileName := range contained.Names() {
		doomed = append(doomed, contained.Chunks(fileName)...)
	}
	if err := d.sessions[0].DeleteMails(doomed, name, true); err != nil {
		return err
	}

	// Deepest first, so no folder is deleted before its children.
	for _, sub := range subfolders {
		if err := d.sessions[0].DeleteFolder(sub); err != nil {
			return err
		}
	}
	return d.sessions[0].DeleteFolder(name)
}
